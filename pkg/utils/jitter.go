// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter spreads base by ±fraction so that many clients started together
// do not hit the bucket listing at the same instant.
//
// Example: Jitter(time.Minute, 0.1) returns 54s-66s
func Jitter(base time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return base
	}
	if fraction > 1 {
		fraction = 1
	}
	jitterRange := float64(base) * fraction
	jitter := (rand.Float64()*2 - 1) * jitterRange
	return base + time.Duration(jitter)
}

// JitteredTicker sends on the returned channel at independently jittered
// intervals until ctx is done, then closes it. Ticks are dropped if the
// receiver is still busy with the previous one.
func JitteredTicker(ctx context.Context, base time.Duration, fraction float64) <-chan time.Time {
	ch := make(chan time.Time, 1)

	go func() {
		defer close(ch)
		for {
			timer := time.NewTimer(Jitter(base, fraction))
			select {
			case t := <-timer.C:
				select {
				case ch <- t:
				default:
				}
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return ch
}
