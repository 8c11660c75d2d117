// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/s3mem"
	"github.com/LeeDigitalWorks/assetvault/pkg/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"
	testBucket    = "assets"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Endpoint:        endpoint,
		Bucket:          testBucket,
		Region:          "us-east-1",
		AccessKeyID:     testAccessKey,
		SecretAccessKey: testSecretKey,
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func newMemServer(t *testing.T) (*s3mem.Server, *Client) {
	t.Helper()
	mem := s3mem.New(s3mem.WithCredentials(signature.StaticCredentials{testAccessKey: testSecretKey}))
	ts := httptest.NewServer(mem)
	t.Cleanup(ts.Close)
	return mem, newTestClient(t, ts.URL)
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Endpoint: "http://localhost:9000"})
	assert.Error(t, err, "bucket required")

	_, err = NewClient(Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.Error(t, err, "endpoint must be absolute")

	c, err := NewClient(Config{Endpoint: "http://localhost:9000/", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/b/x/y.png", c.objectURL("x/y.png", nil).String())
	assert.Equal(t, "us-east-1", c.cfg.Region)
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, c := newMemServer(t)

	require.NoError(t, c.EnsureBucket(ctx))
	require.NoError(t, c.EnsureBucket(ctx), "second create is a conflict and still succeeds")

	key := "images/1700000000000-0a1b2c3d-cat.png"
	require.NoError(t, c.Put(ctx, key, []byte("png bytes"), "image/png"))

	entries, err := c.List(ctx, "images/", 100)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, key, entries[0].Key)
	assert.Equal(t, int64(len("png bytes")), entries[0].Size)
	assert.False(t, entries[0].LastModified.IsZero())
	assert.NotContains(t, entries[0].ETag, `"`)

	ok, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "png bytes", string(data))

	deleted, err := c.Delete(ctx, key)
	require.NoError(t, err)
	assert.True(t, deleted)

	ok, err = c.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Get(ctx, key)
	assert.True(t, IsNotFound(err))

	entries, err = c.List(ctx, "images/", 100)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestClient_ListCapsAtMaxKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, c := newMemServer(t)
	require.NoError(t, c.EnsureBucket(ctx))

	for i := range 5 {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("docs/%d.txt", i), []byte("x"), "text/plain"))
	}

	entries, err := c.List(ctx, "docs/", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	all, err := c.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestClient_ListFollowsMarkers(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"": `<ListBucketResult><Name>assets</Name><IsTruncated>true</IsTruncated>
<Contents><Key>a</Key><Size>1</Size><LastModified>2024-01-02T03:04:05.000Z</LastModified><ETag>"e1"</ETag></Contents>
<Contents><Key>b</Key><Size>2</Size></Contents></ListBucketResult>`,
		"b": `<ListBucketResult><Name>assets</Name><IsTruncated>false</IsTruncated>
<Contents><Key>c</Key><Size>3</Size></Contents></ListBucketResult>`,
	}
	var (
		mu      sync.Mutex
		markers []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		marker := r.URL.Query().Get("marker")
		mu.Lock()
		markers = append(markers, marker)
		mu.Unlock()
		w.Write([]byte(pages[marker]))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	entries, err := c.ListAll(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, entries, 3)
	mu.Lock()
	assert.Equal(t, []string{"", "b"}, markers)
	mu.Unlock()
	assert.Equal(t, "e1", entries[0].ETag)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), entries[0].LastModified)
	assert.Equal(t, "c", entries[2].Key)
}

func TestClient_ExistsDistinguishesFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	c := newTestClient(t, ts.URL)

	ok, err := c.Exists(ctx, "missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, code := range []int{http.StatusForbidden, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		status.Store(int32(code))
		ok, err = c.Exists(ctx, "secret.txt")
		require.NoError(t, err, "status %d", code)
		assert.False(t, ok, "status %d", code)
	}

	status.Store(http.StatusOK)
	ok, err = c.Exists(ctx, "present.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ts.Close()
	ok, err = c.Exists(ctx, "any.txt")
	assert.False(t, ok)
	require.Error(t, err, "transport failure is not absence")
	var re *RemoteError
	assert.False(t, errors.As(err, &re))
}

func TestClient_DeleteTransportFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	c := newTestClient(t, ts.URL)
	deleted, err := c.Delete(context.Background(), "a.txt")
	assert.False(t, deleted)
	assert.Error(t, err)
}

func TestClient_RemoteErrorParsesBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<?xml version="1.0"?><Error><Code>SlowDown</Code><Message>Reduce your request rate.</Message><RequestId>r-1</RequestId></Error>`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Put(context.Background(), "a.txt", []byte("x"), "")

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "put", re.Op)
	assert.Equal(t, "SlowDown", re.Code)
	assert.Equal(t, "r-1", re.RequestID)
	assert.True(t, strings.Contains(re.Error(), "Reduce your request rate"))

	assert.Error(t, c.EnsureBucket(context.Background()))
}

func TestClient_EnsureBucketConflictIsSuccess(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/"+testBucket, r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`<Error><Code>BucketAlreadyExists</Code></Error>`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	assert.NoError(t, c.EnsureBucket(context.Background()))
}

func TestClient_SignsEveryRequest(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		auth []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = append(auth, r.Header.Get("Authorization"))
		mu.Unlock()
		assert.NotEmpty(t, r.Header.Get("X-Amz-Date"))
		assert.NotEmpty(t, r.Header.Get("X-Amz-Content-Sha256"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<ListBucketResult></ListBucketResult>`))
	}))
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.List(context.Background(), "", 10)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, auth, 1)
	assert.True(t, strings.HasPrefix(auth[0], "AWS4-HMAC-SHA256 Credential="+testAccessKey+"/"))
	assert.Contains(t, auth[0], "/us-east-1/s3/aws4_request")
}
