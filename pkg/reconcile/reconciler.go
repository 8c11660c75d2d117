// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile merges the remote bucket listing into the local asset
// cache. The remote listing decides which assets exist and their size,
// ETag and modification time; the cache keeps everything users curate.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/assetcache"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"
	"github.com/LeeDigitalWorks/assetvault/pkg/utils"
)

// ErrInProgress is returned when a reconcile is already running.
var ErrInProgress = errors.New("reconcile already in progress")

// Lister lists every object under a prefix.
type Lister interface {
	ListAll(ctx context.Context, prefix string) ([]objectstore.Entry, error)
}

// Cache is the part of assetcache.Cache the reconciler reads and replaces.
type Cache interface {
	GetAll(ctx context.Context) []asset.Record
	ReplaceAll(ctx context.Context, records []asset.Record) error
}

var _ Cache = (*assetcache.Cache)(nil)

// Result describes one reconcile. Assets is the list callers should show:
// the merged list on OutcomeRemote, the untouched cache otherwise.
type Result struct {
	Outcome  asset.Outcome
	Assets   []asset.Record
	Added    int
	Updated  int
	Removed  int
	Duration time.Duration
}

// Config holds reconciler options.
type Config struct {
	// Prefix limits reconciliation to part of the bucket.
	Prefix string
	// Jitter is the fraction by which Run spreads its interval.
	Jitter float64
}

// Reconciler keeps a cache in line with a bucket.
type Reconciler struct {
	config Config
	lister Lister
	cache  Cache
	now    func() time.Time

	mu        sync.Mutex
	isRunning bool
	last      *Result
	lastRun   time.Time
}

// New creates a Reconciler.
func New(config Config, lister Lister, cache Cache) *Reconciler {
	if config.Jitter == 0 {
		config.Jitter = 0.1
	}
	return &Reconciler{
		config: config,
		lister: lister,
		cache:  cache,
		now:    time.Now,
	}
}

// Last returns the most recent result and when it finished.
func (r *Reconciler) Last() (Result, time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, time.Time{}, false
	}
	return *r.last, r.lastRun, true
}

// Reconcile lists the bucket and replaces the cache contents with the merge.
//
// On a listing failure the cache is left alone and the cached list is
// returned with OutcomeLocalOnly together with the error. A user edit made
// between the snapshot and the replace is lost; the last writer wins.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return Result{Outcome: asset.OutcomeFailed}, ErrInProgress
	}
	r.isRunning = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.isRunning = false
		r.mu.Unlock()
	}()

	start := time.Now()
	log := logger.Ctx(ctx)
	local := r.cache.GetAll(ctx)

	entries, err := r.lister.ListAll(ctx, r.config.Prefix)
	if err != nil {
		res := Result{Outcome: asset.OutcomeLocalOnly, Assets: local, Duration: time.Since(start)}
		r.record(res)
		log.Warn().Err(err).Int("cached", len(local)).Msg("remote listing failed, serving cached assets")
		return res, fmt.Errorf("list remote: %w", err)
	}

	res := r.merge(local, entries)
	if err := r.cache.ReplaceAll(ctx, res.Assets); err != nil {
		failed := Result{Outcome: asset.OutcomeFailed, Assets: local, Duration: time.Since(start)}
		r.record(failed)
		log.Error().Err(err).Msg("failed to persist reconciled assets")
		return failed, fmt.Errorf("persist reconciled assets: %w", err)
	}

	res.Outcome = asset.OutcomeRemote
	res.Duration = time.Since(start)
	r.record(res)

	log.Info().
		Int("assets", len(res.Assets)).
		Int("added", res.Added).
		Int("updated", res.Updated).
		Int("removed", res.Removed).
		Dur("duration", res.Duration).
		Msg("reconciled asset cache")
	return res, nil
}

// merge joins local records to remote entries by key.
func (r *Reconciler) merge(local []asset.Record, entries []objectstore.Entry) Result {
	now := r.now().UTC()

	// local is newest first, so the first record seen for a key is the one kept
	byKey := make(map[string]asset.Record, len(local))
	for _, rec := range local {
		if _, dup := byKey[rec.Key]; !dup {
			byKey[rec.Key] = rec
		}
	}

	var res Result
	merged := make([]asset.Record, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	kept := 0
	for _, e := range entries {
		if _, dup := seen[e.Key]; dup {
			continue
		}
		seen[e.Key] = struct{}{}

		if rec, ok := byKey[e.Key]; ok {
			kept++
			refreshed := refresh(rec, e)
			if changed(rec, refreshed) {
				refreshed.UpdatedAt = now
				res.Updated++
			}
			merged = append(merged, refreshed)
			continue
		}

		merged = append(merged, synthesize(e, now))
		res.Added++
	}

	// records outside the listed prefix were not part of this listing
	carried := 0
	if r.config.Prefix != "" {
		for _, rec := range local {
			if strings.HasPrefix(rec.Key, r.config.Prefix) {
				continue
			}
			if _, dup := seen[rec.Key]; dup {
				continue
			}
			seen[rec.Key] = struct{}{}
			merged = append(merged, rec)
			carried++
		}
	}
	res.Removed = len(local) - kept - carried

	asset.SortNewestFirst(merged)
	res.Assets = merged
	return res
}

// refresh copies the remote-owned fields of e onto rec, including the
// category derived from the key.
func refresh(rec asset.Record, e objectstore.Entry) asset.Record {
	out := rec.Clone()
	out.Size = e.Size
	out.ETag = e.ETag
	out.ModifiedAt = e.LastModified
	out.FileType = asset.Extension(e.Key)
	out.Category, out.Subcategory = asset.Classify(e.Key)
	return out
}

func changed(before, after asset.Record) bool {
	return before.Size != after.Size ||
		before.ETag != after.ETag ||
		!before.ModifiedAt.Equal(after.ModifiedAt) ||
		before.FileType != after.FileType ||
		before.Category != after.Category ||
		before.Subcategory != after.Subcategory
}

// synthesize builds a record for an object the cache has never seen.
func synthesize(e objectstore.Entry, now time.Time) asset.Record {
	name := asset.DisplayName(e.Key)
	category, subcategory := asset.Classify(name)
	created := e.LastModified
	if created.IsZero() {
		created = now
	}
	return asset.Record{
		ID:           asset.IDForKey(e.Key),
		Key:          e.Key,
		Name:         name,
		FileType:     asset.Extension(name),
		Size:         e.Size,
		ETag:         e.ETag,
		Category:     category,
		Subcategory:  subcategory,
		Tags:         asset.HeuristicTags(name),
		UploaderID:   asset.SyncUploaderID,
		UploaderName: asset.SyncUploaderName,
		CreatedAt:    created,
		UpdatedAt:    now,
		ModifiedAt:   e.LastModified,
	}
}

func (r *Reconciler) record(res Result) {
	runsTotal.WithLabelValues(res.Outcome.String()).Inc()
	runDuration.Observe(res.Duration.Seconds())
	if res.Outcome == asset.OutcomeRemote {
		lastAssets.Set(float64(len(res.Assets)))
		lastSuccess.SetToCurrentTime()
	}

	r.mu.Lock()
	r.last = &res
	r.lastRun = r.now()
	r.mu.Unlock()
}

// Run reconciles once, then again every interval (jittered) until ctx is
// done. Failed runs are logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", interval)
	}

	r.runLogged(ctx)

	ticks := utils.JitteredTicker(ctx, interval, r.config.Jitter)
	for range ticks {
		r.runLogged(ctx)
	}
	return ctx.Err()
}

func (r *Reconciler) runLogged(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Ctx(ctx).Error().Err(err).Msg("periodic reconcile failed")
	}
}
