// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"sync"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
)

// EventType says what changed in the cache.
type EventType int

const (
	EventUpserted EventType = iota + 1
	EventDeleted
	EventReplaced
)

func (t EventType) String() string {
	switch t {
	case EventUpserted:
		return "upserted"
	case EventDeleted:
		return "deleted"
	case EventReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Event is delivered after a change has been persisted. Record is set for
// upserts and deletes; Count is the new cache size.
type Event struct {
	Type   EventType
	ID     string
	Record asset.Record
	Count  int
}

// Observer receives cache events synchronously, after the cache lock has
// been released. Observers may call back into the cache.
type Observer interface {
	OnCacheEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnCacheEvent(e Event) { f(e) }

// channelObserver forwards events to a buffered channel and drops them when
// the reader falls behind.
type channelObserver struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func (c *channelObserver) OnCacheEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
		eventsDroppedTotal.Inc()
	}
}

func (c *channelObserver) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
