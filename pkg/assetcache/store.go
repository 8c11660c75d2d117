// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
)

// SchemaVersion is written into every persisted document.
const SchemaVersion = 1

var (
	// ErrNotFound is returned for ids the cache does not hold.
	ErrNotFound = errors.New("asset not found")

	// ErrUnsupportedVersion means the persisted document was written by a
	// newer release and cannot be read safely.
	ErrUnsupportedVersion = errors.New("unsupported cache schema version")
)

// Store persists the whole cache as one opaque document under one key.
// Load returns nil, nil when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// document is the persisted envelope.
type document struct {
	Version int            `json:"version"`
	Assets  []asset.Record `json:"assets"`
}

func encodeDocument(records []asset.Record) ([]byte, error) {
	return json.Marshal(document{Version: SchemaVersion, Assets: records})
}

// decodeDocument reads any known schema version. Version 0 documents are the
// bare JSON arrays written before the envelope existed.
func decodeDocument(data []byte) ([]asset.Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var legacy []asset.Record
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy cache: %w", err)
		}
		return legacy, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	if doc.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrUnsupportedVersion, doc.Version, SchemaVersion)
	}
	return doc.Assets, nil
}

// MemoryStore keeps the document in process memory; nothing survives a restart.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data), nil
}

func (m *MemoryStore) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = slices.Clone(data)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
