// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package objectstore is a small S3 REST client for one bucket. Every request
// is signed with pkg/signature and addressed path-style:
// {endpoint}/{bucket}/{key}.
package objectstore

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/s3types"
	"github.com/LeeDigitalWorks/assetvault/pkg/signature"
	"github.com/LeeDigitalWorks/assetvault/pkg/utils"
)

const (
	// DefaultMaxKeys is the page size S3 uses when max-keys is absent.
	DefaultMaxKeys = 1000

	defaultTimeout      = 30 * time.Second
	defaultMaxIdleConns = 100
	defaultRegion       = "us-east-1"
)

// Config holds what is needed to reach one bucket.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Timeout bounds each request, including reading the body.
	Timeout      time.Duration
	MaxIdleConns int
}

// Entry is one object from a bucket listing.
type Entry struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Client talks to a single bucket.
type Client struct {
	cfg        Config
	endpoint   *url.URL
	signer     *signature.Signer
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	signerOpts []signature.Option
}

// WithHTTPClient replaces the pooled HTTP client, e.g. with httptest's.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithClock sets the time used to sign requests.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		o.signerOpts = append(o.signerOpts, signature.WithClock(now))
	}
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}
	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("objectstore: parse endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("objectstore: endpoint %q must be an absolute URL", cfg.Endpoint)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: max(cfg.MaxIdleConns/10, 2),
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		logger.Warn().
			Str("endpoint", cfg.Endpoint).
			Msg("object store credentials are empty, requests will be rejected by most servers")
	}

	signer := signature.NewSigner(signature.Credential{
		AccessKeyID: cfg.AccessKeyID,
		SecretKey:   cfg.SecretAccessKey,
		Region:      cfg.Region,
		Service:     signature.ServiceS3,
	}, o.signerOpts...)

	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		signer:     signer,
		httpClient: o.httpClient,
	}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// Put uploads data under key.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("put: empty key")
	}
	headers := make(http.Header)
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	resp, err := c.do(ctx, opPut, http.MethodPut, key, nil, headers, data)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return resp.remoteError(opPut, key)
	}
	logger.Ctx(ctx).Debug().Str("key", key).Int("bytes", len(data)).Msg("object stored")
	return nil
}

// Get downloads the object under key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.do(ctx, opGet, http.MethodGet, key, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.remoteError(opGet, key)
	}
	return resp.body, nil
}

// Delete removes key. S3 reports success for keys that never existed, so
// true means the server accepted the delete, not that something was removed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	resp, err := c.do(ctx, opDelete, http.MethodDelete, key, nil, nil, nil)
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, resp.remoteError(opDelete, key)
	}
	return true, nil
}

// Exists reports whether key is present. Any non-2xx answer means absent;
// only a transport failure is returned as an error.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := c.do(ctx, opHead, http.MethodHead, key, nil, nil, nil)
	if err != nil {
		return false, err
	}
	if resp.ok() {
		return true, nil
	}
	if resp.status != http.StatusNotFound {
		logger.Ctx(ctx).Warn().
			Str("key", key).
			Int("status", resp.status).
			Msg("head rejected, treating object as absent")
	}
	return false, nil
}

// EnsureBucket creates the bucket. A conflict (already exists) counts as success.
func (c *Client) EnsureBucket(ctx context.Context) error {
	var body []byte
	if c.cfg.Region != defaultRegion {
		body = []byte(`<CreateBucketConfiguration xmlns="` + s3types.Xmlns + `"><LocationConstraint>` +
			c.cfg.Region + `</LocationConstraint></CreateBucketConfiguration>`)
	}

	resp, err := c.do(ctx, opCreateBucket, http.MethodPut, "", nil, nil, body)
	if err != nil {
		return err
	}
	if resp.status == http.StatusConflict {
		logger.Ctx(ctx).Debug().Str("bucket", c.cfg.Bucket).Msg("bucket already exists")
		return nil
	}
	if !resp.ok() {
		return resp.remoteError(opCreateBucket, "")
	}
	logger.Ctx(ctx).Info().Str("bucket", c.cfg.Bucket).Msg("bucket created")
	return nil
}

// List returns up to maxKeys entries under prefix, following continuation
// markers as needed. maxKeys <= 0 means DefaultMaxKeys.
func (c *Client) List(ctx context.Context, prefix string, maxKeys int) ([]Entry, error) {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return c.list(ctx, prefix, maxKeys)
}

// ListAll pages through every entry under prefix.
func (c *Client) ListAll(ctx context.Context, prefix string) ([]Entry, error) {
	return c.list(ctx, prefix, 0)
}

// list gathers entries until limit is reached; limit 0 means no limit.
func (c *Client) list(ctx context.Context, prefix string, limit int) ([]Entry, error) {
	entries := make([]Entry, 0)
	marker := ""
	for {
		pageSize := DefaultMaxKeys
		if limit > 0 {
			pageSize = min(limit-len(entries), DefaultMaxKeys)
		}

		query := url.Values{}
		query.Set("prefix", prefix)
		query.Set("max-keys", strconv.Itoa(pageSize))
		if marker != "" {
			query.Set("marker", marker)
		}

		resp, err := c.do(ctx, opList, http.MethodGet, "", query, nil, nil)
		if err != nil {
			return nil, err
		}
		if !resp.ok() {
			return nil, resp.remoteError(opList, prefix)
		}

		var result s3types.ListObjectsResult
		if err := xml.Unmarshal(resp.body, &result); err != nil {
			return nil, fmt.Errorf("list: decode response: %w", err)
		}
		for _, obj := range result.Contents {
			entries = append(entries, entryFromContent(obj))
		}

		if limit > 0 && len(entries) >= limit {
			return entries[:limit], nil
		}
		if !result.IsTruncated {
			return entries, nil
		}

		next := result.NextMarker
		if next == "" && len(result.Contents) > 0 {
			next = result.Contents[len(result.Contents)-1].Key
		}
		if next == "" || next == marker {
			logger.Ctx(ctx).Warn().Str("prefix", prefix).Msg("truncated listing without a usable marker")
			return entries, nil
		}
		marker = next
	}
}

func entryFromContent(obj s3types.ObjectContent) Entry {
	e := Entry{
		Key:  obj.Key,
		Size: obj.Size,
		ETag: strings.Trim(obj.ETag, `"`),
	}
	if t, err := time.Parse(time.RFC3339Nano, obj.LastModified); err == nil {
		e.LastModified = t.UTC()
	}
	return e
}

// response is a fully read HTTP response.
type response struct {
	status int
	header http.Header
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (c *Client) objectURL(key string, query url.Values) *url.URL {
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + c.cfg.Bucket
	if key != "" {
		u.Path += "/" + key
	}
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

// do signs and sends one request and reads the whole response body.
// Only transport failures are returned as errors.
func (c *Client) do(ctx context.Context, op, method, key string, query url.Values, headers http.Header, payload []byte) (*response, error) {
	start := time.Now()
	u := c.objectURL(key, query)

	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if err := c.signer.SignRequest(req, payload); err != nil {
		return nil, fmt.Errorf("%s: sign request: %w", op, err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(op, "error", start)
		logger.Ctx(ctx).Debug().Err(err).Str("op", op).Str("url", u.Redacted()).Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", op, u.Path, err)
	}
	defer httpResp.Body.Close()

	buf := utils.SyncPoolGetBuffer()
	defer utils.SyncPoolPutBuffer(buf)
	if _, err := io.Copy(buf, httpResp.Body); err != nil {
		observeRequest(op, "error", start)
		return nil, fmt.Errorf("%s %s: read body: %w", op, u.Path, err)
	}

	observeRequest(op, strconv.Itoa(httpResp.StatusCode), start)
	return &response{
		status: httpResp.StatusCode,
		header: httpResp.Header,
		body:   bytes.Clone(buf.Bytes()),
	}, nil
}
