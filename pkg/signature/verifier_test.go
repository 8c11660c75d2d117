// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/s3err"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func newTestVerifier(now time.Time) *V4Verifier {
	return NewV4Verifier(StaticCredentials{testAccessKey: testSecretKey}).
		WithVerifierClock(func() time.Time { return now })
}

// signedServerRequest signs a client request and replays it as the server
// would receive it.
func signedServerRequest(t *testing.T, s *Signer, method, target string, headers http.Header, body []byte) *http.Request {
	t.Helper()

	signed, err := s.Sign(method, target, headers, body)
	require.NoError(t, err)

	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	r.Header = signed
	return r
}

func TestV4Verifier_VerifyRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	good := NewSigner(Credential{AccessKeyID: testAccessKey, SecretKey: testSecretKey, Region: testRegion},
		WithClock(func() time.Time { return now }))
	wrongSecret := NewSigner(Credential{AccessKeyID: testAccessKey, SecretKey: "nope", Region: testRegion},
		WithClock(func() time.Time { return now }))
	unknownKey := NewSigner(Credential{AccessKeyID: "AKIDUNKNOWN", SecretKey: testSecretKey, Region: testRegion},
		WithClock(func() time.Time { return now }))
	stale := NewSigner(Credential{AccessKeyID: testAccessKey, SecretKey: testSecretKey, Region: testRegion},
		WithClock(func() time.Time { return now.Add(-time.Hour) }))

	tests := []struct {
		name   string
		signer *Signer
		method string
		target string
		body   []byte
		tamper func(r *http.Request)
		want   s3err.ErrorCode
	}{
		{name: "valid get", signer: good, method: http.MethodGet, target: "http://s3.local/media?prefix=a&max-keys=5", want: s3err.ErrNone},
		{name: "valid put", signer: good, method: http.MethodPut, target: "http://s3.local/media/a.txt", body: []byte("hello"), want: s3err.ErrNone},
		{name: "wrong secret", signer: wrongSecret, method: http.MethodGet, target: "http://s3.local/media", want: s3err.ErrSignatureDoesNotMatch},
		{name: "unknown key", signer: unknownKey, method: http.MethodGet, target: "http://s3.local/media", want: s3err.ErrInvalidAccessKeyID},
		{name: "skewed clock", signer: stale, method: http.MethodGet, target: "http://s3.local/media", want: s3err.ErrRequestTimeTooSkewed},
		{
			name: "tampered query", signer: good, method: http.MethodGet, target: "http://s3.local/media?prefix=a",
			tamper: func(r *http.Request) { r.URL.RawQuery = "prefix=b" },
			want:   s3err.ErrSignatureDoesNotMatch,
		},
		{
			name: "dropped signed header", signer: good, method: http.MethodGet, target: "http://s3.local/media",
			tamper: func(r *http.Request) { r.Header.Del(HeaderContentSHA256) },
			want:   s3err.ErrSignatureDoesNotMatch,
		},
		{
			name: "no auth header", signer: good, method: http.MethodGet, target: "http://s3.local/media",
			tamper: func(r *http.Request) { r.Header.Del(HeaderAuthorization) },
			want:   s3err.ErrAuthHeaderMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := signedServerRequest(t, tt.signer, tt.method, tt.target, nil, tt.body)
			if tt.tamper != nil {
				tt.tamper(r)
			}

			accessKey, code := newTestVerifier(now).VerifyRequest(r)
			assert.Equal(t, tt.want, code, "got %s", code.Code())
			if tt.want == s3err.ErrNone {
				assert.Equal(t, testAccessKey, accessKey)
			}
		})
	}
}

func TestExtractAuthInfo(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "http://s3.local/", nil)
	r.Header.Set(HeaderAuthorization, "AWS4-HMAC-SHA256 Credential=AK/20250601/us-east-1/s3/aws4_request, SignedHeaders=host;x-amz-date, Signature=abc")
	r.Header.Set(HeaderAmzDate, "20250601T120000Z")

	auth, err := extractAuthInfo(r)
	require.NoError(t, err)
	assert.Equal(t, "AK", auth.accessKey)
	assert.Equal(t, "20250601", auth.date)
	assert.Equal(t, "us-east-1", auth.region)
	assert.Equal(t, "s3", auth.service)
	assert.Equal(t, []string{"host", "x-amz-date"}, auth.signedHeaders)
	assert.Equal(t, "abc", auth.signature)

	r.Header.Set(HeaderAuthorization, "AWS4-HMAC-SHA256 Credential=AK/20250601/us-east-1/s3, SignedHeaders=host, Signature=abc")
	_, err = extractAuthInfo(r)
	assert.Error(t, err)
}
