// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3mem is an in-memory, S3-compatible HTTP handler for local
// development and tests. It understands path-style bucket and object
// requests, ListObjects (v1) and SigV4 authentication.
package s3mem

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
	"github.com/LeeDigitalWorks/assetvault/pkg/s3err"
	"github.com/LeeDigitalWorks/assetvault/pkg/s3types"
	"github.com/LeeDigitalWorks/assetvault/pkg/signature"
	"github.com/LeeDigitalWorks/assetvault/pkg/utils"

	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Amz-Request-Id"

	// DefaultMaxObjectSize caps single PUTs; everything is held in memory.
	DefaultMaxObjectSize = 512 << 20

	maxListKeys = 1000
)

var bucketNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

type object struct {
	data         []byte
	etag         string
	contentType  string
	lastModified time.Time
}

type bucket struct {
	created time.Time
	objects map[string]object
}

// Server is an http.Handler holding buckets in memory.
type Server struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	verifier      *signature.V4Verifier
	now           func() time.Time
	maxObjectSize int64
}

// Option configures a Server.
type Option func(*Server)

// WithCredentials requires every request to carry a valid SigV4 signature
// from one of the keys in store. Without it the server accepts anonymous
// requests.
func WithCredentials(store signature.CredentialStore) Option {
	return func(s *Server) {
		s.verifier = signature.NewV4Verifier(store)
	}
}

// WithClock sets the time used for LastModified and signature skew checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithBuckets pre-creates buckets.
func WithBuckets(names ...string) Option {
	return func(s *Server) {
		for _, n := range names {
			s.buckets[n] = &bucket{created: s.now(), objects: make(map[string]object)}
		}
	}
}

// WithMaxObjectSize overrides DefaultMaxObjectSize.
func WithMaxObjectSize(n int64) Option {
	return func(s *Server) {
		s.maxObjectSize = n
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		buckets:       make(map[string]*bucket),
		now:           time.Now,
		maxObjectSize: DefaultMaxObjectSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier != nil {
		s.verifier.WithVerifierClock(s.now)
	}
	return s
}

// ObjectCount returns how many objects bucket holds, or -1 if it does not exist.
func (s *Server) ObjectCount(bucketName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[bucketName]
	if !ok {
		return -1
	}
	return len(b.objects)
}

// request is the parsed form of one incoming call.
type request struct {
	w         http.ResponseWriter
	r         *http.Request
	requestID string
	bucket    string
	key       string
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &request{w: w, r: r, requestID: uuid.NewString()}
	w.Header().Set(headerRequestID, req.requestID)
	w.Header().Set("Server", "assetvault-s3mem")

	req.bucket, req.key, _ = strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if s.verifier != nil {
		accessKey, code := s.verifier.VerifyRequest(r)
		if code != s3err.ErrNone {
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("code", code.Code()).
				Msg("rejected request signature")
			req.writeError(code)
			return
		}
		logger.Trace().Str("access_key", accessKey).Str("method", r.Method).Str("path", r.URL.Path).Msg("s3mem request")
	}

	switch {
	case req.bucket == "":
		req.writeError(s3err.ErrMethodNotAllowed)
	case req.key == "":
		s.serveBucket(req)
	default:
		s.serveObject(req)
	}
}

func (s *Server) serveBucket(req *request) {
	switch req.r.Method {
	case http.MethodPut:
		s.createBucket(req)
	case http.MethodHead:
		s.mu.RLock()
		_, ok := s.buckets[req.bucket]
		s.mu.RUnlock()
		if !ok {
			req.w.WriteHeader(http.StatusNotFound)
			return
		}
		req.w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.listObjects(req)
	default:
		req.writeError(s3err.ErrMethodNotAllowed)
	}
}

func (s *Server) serveObject(req *request) {
	switch req.r.Method {
	case http.MethodPut:
		s.putObject(req)
	case http.MethodGet, http.MethodHead:
		s.getObject(req)
	case http.MethodDelete:
		s.deleteObject(req)
	default:
		req.writeError(s3err.ErrMethodNotAllowed)
	}
}

func (s *Server) createBucket(req *request) {
	if !bucketNameRe.MatchString(req.bucket) {
		req.writeError(s3err.ErrInvalidBucketName)
		return
	}

	s.mu.Lock()
	if _, exists := s.buckets[req.bucket]; exists {
		s.mu.Unlock()
		req.writeError(s3err.ErrBucketAlreadyOwnedByYou)
		return
	}
	s.buckets[req.bucket] = &bucket{created: s.now(), objects: make(map[string]object)}
	s.mu.Unlock()

	logger.Info().Str("bucket", req.bucket).Msg("bucket created")
	req.w.Header().Set("Location", "/"+req.bucket)
	req.w.WriteHeader(http.StatusOK)
}

func (s *Server) putObject(req *request) {
	body, err := io.ReadAll(http.MaxBytesReader(req.w, req.r.Body, s.maxObjectSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			req.writeError(s3err.ErrEntityTooLarge)
			return
		}
		req.writeError(s3err.ErrInternalError)
		return
	}

	if declared := req.r.Header.Get(signature.HeaderContentSHA256); isHexDigest(declared) {
		if utils.Sha256Hex(body) != declared {
			req.writeError(s3err.ErrContentSHA256Mismatch)
			return
		}
	}

	sum := md5.Sum(body)
	obj := object{
		data:         body,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		contentType:  req.r.Header.Get("Content-Type"),
		lastModified: s.now().UTC(),
	}

	s.mu.Lock()
	b, ok := s.buckets[req.bucket]
	if !ok {
		s.mu.Unlock()
		req.writeError(s3err.ErrNoSuchBucket)
		return
	}
	b.objects[req.key] = obj
	s.mu.Unlock()

	req.w.Header().Set("ETag", obj.etag)
	req.w.WriteHeader(http.StatusOK)
}

func (s *Server) getObject(req *request) {
	s.mu.RLock()
	b, ok := s.buckets[req.bucket]
	var obj object
	var found bool
	if ok {
		obj, found = b.objects[req.key]
	}
	s.mu.RUnlock()

	switch {
	case !ok:
		req.writeError(s3err.ErrNoSuchBucket)
		return
	case !found:
		req.writeError(s3err.ErrNoSuchKey)
		return
	}

	h := req.w.Header()
	h.Set("ETag", obj.etag)
	h.Set("Last-Modified", obj.lastModified.Format(http.TimeFormat))
	h.Set("Content-Length", strconv.Itoa(len(obj.data)))
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	} else {
		h.Set("Content-Type", "application/octet-stream")
	}
	req.w.WriteHeader(http.StatusOK)
	if req.r.Method == http.MethodGet {
		req.w.Write(obj.data)
	}
}

func (s *Server) deleteObject(req *request) {
	s.mu.Lock()
	b, ok := s.buckets[req.bucket]
	if ok {
		delete(b.objects, req.key)
	}
	s.mu.Unlock()

	if !ok {
		req.writeError(s3err.ErrNoSuchBucket)
		return
	}
	req.w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listObjects(req *request) {
	q := req.r.URL.Query()
	prefix := q.Get("prefix")
	marker := q.Get("marker")
	delimiter := q.Get("delimiter")

	maxKeys := maxListKeys
	if v := q.Get("max-keys"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			req.writeError(s3err.ErrInvalidArgument)
			return
		}
		maxKeys = min(n, maxListKeys)
	}

	s.mu.RLock()
	b, ok := s.buckets[req.bucket]
	if !ok {
		s.mu.RUnlock()
		req.writeError(s3err.ErrNoSuchBucket)
		return
	}
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) && k > marker {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	result := s3types.ListObjectsResult{
		Xmlns:     s3types.Xmlns,
		Name:      req.bucket,
		Prefix:    prefix,
		Marker:    marker,
		Delimiter: delimiter,
		MaxKeys:   maxKeys,
	}
	seenPrefixes := make(map[string]struct{})
	count := 0
	for _, k := range keys {
		cp := ""
		if delimiter != "" {
			if i := strings.Index(k[len(prefix):], delimiter); i >= 0 {
				cp = k[:len(prefix)+i+len(delimiter)]
			}
		}
		// keys rolled into an already emitted prefix cost nothing
		if _, seen := seenPrefixes[cp]; cp != "" && seen {
			result.NextMarker = k
			continue
		}
		if count >= maxKeys {
			result.IsTruncated = true
			break
		}
		if cp != "" {
			seenPrefixes[cp] = struct{}{}
			result.CommonPrefixes = append(result.CommonPrefixes, s3types.CommonPrefix{Prefix: cp})
			result.NextMarker = k
			count++
			continue
		}
		obj := b.objects[k]
		result.Contents = append(result.Contents, s3types.ObjectContent{
			Key:          k,
			LastModified: obj.lastModified.Format(s3types.LastModifiedFormat),
			ETag:         obj.etag,
			Size:         int64(len(obj.data)),
			StorageClass: "STANDARD",
		})
		result.NextMarker = k
		count++
	}
	s.mu.RUnlock()

	if !result.IsTruncated {
		result.NextMarker = ""
	}
	req.writeXML(http.StatusOK, result)
}

func (req *request) writeXML(status int, v any) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		req.writeError(s3err.ErrInternalError)
		return
	}
	req.w.Header().Set("Content-Type", "application/xml")
	req.w.WriteHeader(status)
	req.w.Write(buf.Bytes())
}

func (req *request) writeError(code s3err.ErrorCode) {
	resource := "/" + req.bucket
	if req.key != "" {
		resource += "/" + req.key
	}
	e := code.ToErrorResponse(resource)
	e.RequestID = req.requestID

	req.w.Header().Set("Content-Type", "application/xml")
	req.w.WriteHeader(e.HTTPCode)
	if req.r.Method == http.MethodHead {
		return
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	xml.NewEncoder(&buf).Encode(e)
	req.w.Write(buf.Bytes())
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
