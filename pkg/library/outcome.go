// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package library

import "github.com/LeeDigitalWorks/assetvault/pkg/asset"

// Outcome is shared with the reconciler so callers can treat both alike.
type Outcome = asset.Outcome

const (
	OutcomeRemote    = asset.OutcomeRemote
	OutcomeLocalOnly = asset.OutcomeLocalOnly
	OutcomeFailed    = asset.OutcomeFailed
)
