// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package assetcache is the local, persisted id -> asset.Record map.
//
// Every mutation rewrites the whole document through a Store, so the
// persisted state is always one consistent snapshot. Writers are
// serialised per call but not across calls: a read-modify-write that spans
// two calls (reconciliation, for one) is last-writer-wins.
package assetcache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
)

// Cache holds asset records keyed by id.
type Cache struct {
	mu      sync.Mutex
	store   Store
	records map[string]asset.Record
	now     func() time.Time

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObsID int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Open loads the persisted document from store.
func Open(ctx context.Context, store Store, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:     store,
		records:   make(map[string]asset.Record),
		now:       time.Now,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(c)
	}

	data, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}
	records, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		c.records[r.ID] = r
	}
	assetsGauge.Set(float64(len(c.records)))

	logger.Debug().Int("assets", len(c.records)).Msg("asset cache loaded")
	return c, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// GetAll returns every record, newest first.
func (c *Cache) GetAll(_ context.Context) []asset.Record {
	c.mu.Lock()
	out := make([]asset.Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, r.Clone())
	}
	c.mu.Unlock()

	asset.SortNewestFirst(out)
	return out
}

// Get returns the record with id or ErrNotFound.
func (c *Cache) Get(_ context.Context, id string) (asset.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[id]
	if !ok {
		return asset.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

// FindByKey returns the record whose object key is key.
func (c *Cache) FindByKey(_ context.Context, key string) (asset.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range c.records {
		if r.Key == key {
			return r.Clone(), true
		}
	}
	return asset.Record{}, false
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Upsert applies the non-nil fields of p to the record with p.ID, creating
// it when absent. UpdatedAt is always refreshed.
func (c *Cache) Upsert(ctx context.Context, p Patch) (asset.Record, error) {
	if p.ID == "" {
		return asset.Record{}, fmt.Errorf("upsert: empty id")
	}

	c.mu.Lock()
	now := c.now().UTC()
	current, exists := c.records[p.ID]
	if !exists {
		current = asset.Record{ID: p.ID, CreatedAt: now}
	}
	updated := p.apply(current.Clone())
	updated.UpdatedAt = now

	next := maps.Clone(c.records)
	next[p.ID] = updated
	if err := c.persistLocked(ctx, next); err != nil {
		c.mu.Unlock()
		return asset.Record{}, err
	}
	count := len(c.records)
	c.mu.Unlock()

	c.notify(Event{Type: EventUpserted, ID: p.ID, Record: updated.Clone(), Count: count})
	return updated.Clone(), nil
}

// Delete removes the record with id.
func (c *Cache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	removed, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := maps.Clone(c.records)
	delete(next, id)
	if err := c.persistLocked(ctx, next); err != nil {
		c.mu.Unlock()
		return err
	}
	count := len(c.records)
	c.mu.Unlock()

	c.notify(Event{Type: EventDeleted, ID: id, Record: removed, Count: count})
	return nil
}

// ReplaceAll swaps the entire contents for records.
func (c *Cache) ReplaceAll(ctx context.Context, records []asset.Record) error {
	next := make(map[string]asset.Record, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("replace: record for key %q has empty id", r.Key)
		}
		next[r.ID] = r.Clone()
	}

	c.mu.Lock()
	if err := c.persistLocked(ctx, next); err != nil {
		c.mu.Unlock()
		return err
	}
	count := len(c.records)
	c.mu.Unlock()

	c.notify(Event{Type: EventReplaced, Count: count})
	return nil
}

// persistLocked writes next and, on success, makes it the live state.
// The in-memory map is left untouched when the store rejects the write.
func (c *Cache) persistLocked(ctx context.Context, next map[string]asset.Record) error {
	records := slices.Collect(maps.Values(next))
	asset.SortNewestFirst(records)

	data, err := encodeDocument(records)
	if err != nil {
		persistErrorsTotal.Inc()
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := c.store.Save(ctx, data); err != nil {
		persistErrorsTotal.Inc()
		return fmt.Errorf("save cache: %w", err)
	}

	c.records = next
	assetsGauge.Set(float64(len(next)))
	return nil
}

// AddObserver registers o and returns a function that unregisters it.
func (c *Cache) AddObserver(o Observer) (remove func()) {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = o
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// Subscribe returns a channel receiving cache events. Events are dropped
// when more than buffer are pending. cancel unregisters and closes the channel.
func (c *Cache) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	obs := &channelObserver{ch: make(chan Event, buffer)}
	remove := c.AddObserver(obs)

	return obs.ch, func() {
		remove()
		obs.close()
	}
}

func (c *Cache) notify(e Event) {
	c.obsMu.RLock()
	observers := slices.Collect(maps.Values(c.observers))
	c.obsMu.RUnlock()

	for _, o := range observers {
		o.OnCacheEvent(e)
	}
}
