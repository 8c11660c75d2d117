// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"fmt"
	"mime"
	"path"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is how many uploads run at once.
const DefaultConcurrency = 3

// Putter is the part of Client the uploader needs.
type Putter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// UploadItem is one file to upload. Key is generated from Name, Category
// and Route when empty; Category and ContentType are derived from Name
// when empty.
type UploadItem struct {
	Name        string
	Data        []byte
	ContentType string
	Category    asset.Category
	Route       Route
	Key         string
}

// UploadResult reports the outcome of the item at Index.
type UploadResult struct {
	Index       int
	Name        string
	Key         string
	Size        int64
	ContentType string
	Category    asset.Category
	Subcategory string
	Err         error
}

// Uploader runs uploads in consecutive batches of at most Concurrency items.
// Each batch is awaited before the next starts, so no more than Concurrency
// requests are ever in flight.
type Uploader struct {
	putter      Putter
	keys        *KeyGenerator
	concurrency int
	limiter     *rate.Limiter
	onResult    func(UploadResult)
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithConcurrency sets the batch size; values below 1 are ignored.
func WithConcurrency(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithRateLimit throttles how fast uploads start. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) UploaderOption {
	return func(u *Uploader) {
		if perSecond <= 0 {
			u.limiter = nil
			return
		}
		u.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithProgress is called once per finished item, from the uploading goroutine.
func WithProgress(fn func(UploadResult)) UploaderOption {
	return func(u *Uploader) {
		u.onResult = fn
	}
}

func NewUploader(putter Putter, keys *KeyGenerator, opts ...UploaderOption) *Uploader {
	if keys == nil {
		keys = NewKeyGenerator()
	}
	u := &Uploader{
		putter:      putter,
		keys:        keys,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload sends every item and returns one result per item, in input order.
// A failed item never stops its siblings.
func (u *Uploader) Upload(ctx context.Context, items []UploadItem) []UploadResult {
	results := make([]UploadResult, len(items))

	for start := 0; start < len(items); start += u.concurrency {
		end := min(start+u.concurrency, len(items))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(items); i++ {
				results[i] = u.prepare(i, items[i])
				results[i].Err = err
				u.finish(ctx, results[i])
			}
			break
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = u.uploadOne(ctx, i, items[i])
				u.finish(ctx, results[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

func (u *Uploader) prepare(index int, item UploadItem) UploadResult {
	res := UploadResult{
		Index:       index,
		Name:        item.Name,
		Key:         item.Key,
		Size:        int64(len(item.Data)),
		ContentType: item.ContentType,
		Category:    item.Category,
	}
	if res.Category == "" {
		res.Category, res.Subcategory = asset.Classify(item.Name)
	}
	if res.ContentType == "" {
		res.ContentType = mime.TypeByExtension(path.Ext(item.Name))
	}
	if res.ContentType == "" {
		res.ContentType = "application/octet-stream"
	}
	return res
}

func (u *Uploader) uploadOne(ctx context.Context, index int, item UploadItem) UploadResult {
	res := u.prepare(index, item)

	if res.Key == "" {
		key, err := u.keys.Generate(item.Name, res.Category, item.Route)
		if err != nil {
			res.Err = fmt.Errorf("generate key for %s: %w", item.Name, err)
			return res
		}
		res.Key = key
	}

	if u.limiter != nil {
		if err := u.limiter.Wait(ctx); err != nil {
			res.Err = err
			return res
		}
	}

	res.Err = u.putter.Put(ctx, res.Key, item.Data, res.ContentType)
	return res
}

func (u *Uploader) finish(ctx context.Context, res UploadResult) {
	if res.Err != nil {
		uploadsTotal.WithLabelValues("failed").Inc()
		logger.Ctx(ctx).Warn().Err(res.Err).Str("name", res.Name).Str("key", res.Key).Msg("upload failed")
	} else {
		uploadsTotal.WithLabelValues("ok").Inc()
	}
	if u.onResult != nil {
		u.onResult(res)
	}
}
