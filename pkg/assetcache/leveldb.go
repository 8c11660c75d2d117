// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/utils"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// DefaultStorageKey is the single key the cache document lives under.
const DefaultStorageKey = "assetvault/assets"

// LevelDBStore persists the cache document in a local LevelDB directory.
type LevelDBStore struct {
	db  *leveldb.DB
	key []byte

	writeOpts *opt.WriteOptions
}

// NewLevelDBStore opens (or creates) the database at dir, recovering it if
// the manifest is corrupted.
func NewLevelDBStore(dir string) (*LevelDBStore, error) {
	dir = utils.ResolvePath(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := leveldb.OpenFile(dir, nil)
	if lerrors.IsCorrupted(err) {
		logger.Warn().Err(err).Str("dir", dir).Msg("cache database corrupted, recovering")
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	return &LevelDBStore{
		db:        db,
		key:       []byte(DefaultStorageKey),
		writeOpts: &opt.WriteOptions{Sync: true},
	}, nil
}

func (s *LevelDBStore) Load(_ context.Context) ([]byte, error) {
	data, err := s.db.Get(s.key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}
	return data, nil
}

func (s *LevelDBStore) Save(_ context.Context, data []byte) error {
	if err := s.db.Put(s.key, data, s.writeOpts); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
