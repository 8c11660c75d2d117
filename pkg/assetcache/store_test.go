// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocument_Versions(t *testing.T) {
	t.Parallel()

	records, err := decodeDocument(nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	legacy := []byte(`[{"id":"a1","key":"docs/a.pdf","name":"a.pdf"}]`)
	records, err = decodeDocument(legacy)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "docs/a.pdf", records[0].Key)

	current := []byte(`{"version":1,"assets":[{"id":"a1","key":"k"}]}`)
	records, err = decodeDocument(current)
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = decodeDocument([]byte(`{"version":99,"assets":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = decodeDocument([]byte(`{broken`))
	assert.Error(t, err)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), []byte(`{"version":2,"assets":[]}`)))

	_, err := Open(context.Background(), store)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEncodeDocument_WritesVersion(t *testing.T) {
	t.Parallel()

	data, err := encodeDocument(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"assets":null}`, string(data))
}

func TestLevelDBStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLevelDBStore(dir)
	require.NoError(t, err)

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	c, err := Open(ctx, s)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, Patch{ID: "a1", Key: Ptr("images/a.png"), Shared: Ptr(true)})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	s2, err := NewLevelDBStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	c2, err := Open(ctx, s2)
	require.NoError(t, err)
	rec, err := c2.Get(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, rec.Shared)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStoreWithClient(client, "test:assets")

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	c, err := Open(ctx, s)
	require.NoError(t, err)
	_, err = c.Upsert(ctx, Patch{ID: "a1", Tags: &[]string{"x"}})
	require.NoError(t, err)

	raw, err := mr.Get("test:assets")
	require.NoError(t, err)
	assert.Contains(t, raw, `"version":1`)

	c2, err := Open(ctx, NewRedisStoreWithClient(client, "test:assets"))
	require.NoError(t, err)
	rec, err := c2.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, rec.Tags)

	// Close on a borrowed client leaves it usable
	require.NoError(t, s.Close())
	require.NoError(t, client.Ping(ctx).Err())
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, "127.0.0.1:1", "", 0, "")
	assert.Error(t, err)
}
