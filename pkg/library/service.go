// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package library ties the object store and the local cache together into
// the user-facing asset workflows: upload, delete, curate and browse.
package library

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/assetcache"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"
)

// ErrNotFound is returned for ids the library does not know.
var ErrNotFound = errors.New("asset not found")

// Remote is the object store as the library uses it.
type Remote interface {
	objectstore.Putter
	Delete(ctx context.Context, key string) (bool, error)
}

// Service runs library workflows. It is safe for concurrent use.
type Service struct {
	remote   Remote
	cache    *assetcache.Cache
	uploader *objectstore.Uploader
	now      func() time.Time
}

// New creates a Service. uploader may be nil, in which case a default one
// is built on remote.
func New(remote Remote, cache *assetcache.Cache, uploader *objectstore.Uploader) *Service {
	if uploader == nil {
		uploader = objectstore.NewUploader(remote, nil)
	}
	return &Service{
		remote:   remote,
		cache:    cache,
		uploader: uploader,
		now:      time.Now,
	}
}

// File is one file to upload.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

// UploadRequest describes a batch of files sharing routing and ownership.
type UploadRequest struct {
	Files        []File
	Route        objectstore.Route
	UploaderID   string
	UploaderName string
	Tags         []string
	Shared       bool
	Metadata     map[string]string
}

// UploadOutcome is the result for one file.
//
// OutcomeRemote with a nil Err means the object is stored and cached.
// OutcomeRemote with an Err means the object is stored but the cache write
// failed; the next reconcile will pick it up. OutcomeFailed means the object
// was not stored.
type UploadOutcome struct {
	Name    string
	Outcome asset.Outcome
	Record  asset.Record
	Err     error
}

// Upload stores every file and records the successful ones in the cache.
// One failing file never stops the others.
func (s *Service) Upload(ctx context.Context, req UploadRequest) []UploadOutcome {
	items := make([]objectstore.UploadItem, len(req.Files))
	for i, f := range req.Files {
		items[i] = objectstore.UploadItem{
			Name:        f.Name,
			Data:        f.Data,
			ContentType: f.ContentType,
			Route:       req.Route,
		}
	}

	results := s.uploader.Upload(ctx, items)
	out := make([]UploadOutcome, len(results))
	for i, res := range results {
		out[i] = UploadOutcome{Name: res.Name}
		if res.Err != nil {
			out[i].Outcome = asset.OutcomeFailed
			out[i].Err = res.Err
			continue
		}

		rec, err := s.cache.Upsert(ctx, s.patchForUpload(req, res))
		out[i].Outcome = asset.OutcomeRemote
		out[i].Record = rec
		if err != nil {
			out[i].Err = fmt.Errorf("cache %s: %w", res.Key, err)
			logger.Ctx(ctx).Warn().Err(err).Str("key", res.Key).Msg("uploaded object not cached")
		}
	}
	return out
}

func (s *Service) patchForUpload(req UploadRequest, res objectstore.UploadResult) assetcache.Patch {
	tags := append(slices.Clone(req.Tags), asset.HeuristicTags(res.Name)...)
	name := strings.TrimSpace(res.Name)
	if name == "" {
		name = asset.DisplayName(res.Key)
	}
	now := s.now().UTC()

	return assetcache.Patch{
		ID:           asset.NewID(),
		Key:          assetcache.Ptr(res.Key),
		Name:         assetcache.Ptr(name),
		FileType:     assetcache.Ptr(asset.Extension(res.Key)),
		Size:         assetcache.Ptr(res.Size),
		Category:     assetcache.Ptr(res.Category),
		Subcategory:  assetcache.Ptr(res.Subcategory),
		Tags:         &tags,
		UploaderID:   assetcache.Ptr(req.UploaderID),
		UploaderName: assetcache.Ptr(req.UploaderName),
		Shared:       assetcache.Ptr(req.Shared),
		Metadata:     maps.Clone(req.Metadata),
		ModifiedAt:   &now,
	}
}

// Delete removes the asset remotely and then from the cache. If the
// remote delete fails the cache is left untouched.
func (s *Service) Delete(ctx context.Context, id string) (asset.Outcome, error) {
	rec, err := s.cache.Get(ctx, id)
	if errors.Is(err, assetcache.ErrNotFound) {
		return asset.OutcomeFailed, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return asset.OutcomeFailed, err
	}

	if _, err := s.remote.Delete(ctx, rec.Key); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("id", id).Str("key", rec.Key).Msg("remote delete failed, keeping cached asset")
		return asset.OutcomeFailed, fmt.Errorf("delete %s: %w", rec.Key, err)
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		return asset.OutcomeRemote, fmt.Errorf("uncache %s: %w", id, err)
	}
	logger.Ctx(ctx).Info().Str("id", id).Str("key", rec.Key).Msg("asset deleted")
	return asset.OutcomeRemote, nil
}

// Update applies a curation patch to an existing asset.
func (s *Service) Update(ctx context.Context, id string, p assetcache.Patch) (asset.Record, error) {
	if _, err := s.cache.Get(ctx, id); err != nil {
		if errors.Is(err, assetcache.ErrNotFound) {
			return asset.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return asset.Record{}, err
	}
	p.ID = id
	// the object key and remote-owned fields are not editable here
	p.Key, p.Size, p.ETag, p.ModifiedAt = nil, nil, nil, nil
	p.Category, p.Subcategory = nil, nil
	return s.cache.Upsert(ctx, p)
}

// Get returns one asset.
func (s *Service) Get(ctx context.Context, id string) (asset.Record, error) {
	rec, err := s.cache.Get(ctx, id)
	if errors.Is(err, assetcache.ErrNotFound) {
		return asset.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}
