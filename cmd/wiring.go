// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/LeeDigitalWorks/assetvault/pkg/assetcache"
	"github.com/LeeDigitalWorks/assetvault/pkg/library"
	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/objectstore"

	"github.com/spf13/cobra"
)

// Cache backends selectable with --cache_backend.
const (
	CacheBackendLevelDB = "leveldb"
	CacheBackendRedis   = "redis"
	CacheBackendMemory  = "memory"
)

// StoreOpts holds the object store connection settings.
type StoreOpts struct {
	objectstore.Config
}

// CacheOpts holds the local cache settings.
type CacheOpts struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

func loadStoreOpts(cmd *cobra.Command) StoreOpts {
	f := NewFlagLoader(cmd)
	return StoreOpts{Config: objectstore.Config{
		Endpoint:        f.String("endpoint"),
		Bucket:          f.String("bucket"),
		Region:          f.String("region"),
		AccessKeyID:     f.String("access_key"),
		SecretAccessKey: f.String("secret_key"),
		Timeout:         f.Duration("request_timeout"),
	}}
}

func loadCacheOpts(cmd *cobra.Command) CacheOpts {
	f := NewFlagLoader(cmd)
	return CacheOpts{
		Backend:       strings.ToLower(f.String("cache_backend")),
		Path:          f.String("cache_path"),
		RedisAddr:     f.String("redis_addr"),
		RedisPassword: f.String("redis_password"),
		RedisDB:       f.Int("redis_db"),
		RedisKey:      f.String("redis_key"),
	}
}

func openStore(ctx context.Context, opts CacheOpts) (assetcache.Store, error) {
	switch opts.Backend {
	case CacheBackendLevelDB, "":
		return assetcache.NewLevelDBStore(opts.Path)
	case CacheBackendRedis:
		return assetcache.NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisKey)
	case CacheBackendMemory:
		logger.Warn().Msg("memory cache backend selected, curation is lost on exit")
		return assetcache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want leveldb, redis or memory)", opts.Backend)
	}
}

// app is everything a command needs, built from flags and configuration.
type app struct {
	client  *objectstore.Client
	cache   *assetcache.Cache
	library *library.Service
}

func newApp(cmd *cobra.Command, uploaderOpts ...objectstore.UploaderOption) (*app, error) {
	ctx := cmd.Context()

	storeOpts := loadStoreOpts(cmd)
	client, err := objectstore.NewClient(storeOpts.Config)
	if err != nil {
		return nil, err
	}

	cacheOpts := loadCacheOpts(cmd)
	store, err := openStore(ctx, cacheOpts)
	if err != nil {
		return nil, err
	}
	cache, err := assetcache.Open(ctx, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	uploader := objectstore.NewUploader(client, nil, uploaderOpts...)
	logger.Debug().
		Str("endpoint", storeOpts.Endpoint).
		Str("bucket", client.Bucket()).
		Str("cache_backend", cacheOpts.Backend).
		Int("assets", cache.Len()).
		Msg("assetvault ready")

	return &app{
		client:  client,
		cache:   cache,
		library: library.New(client, cache, uploader),
	}, nil
}

func (a *app) Close() error {
	return a.cache.Close()
}
