// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/logger"
)

// AWS Signature Version 4, client side:
// https://docs.aws.amazon.com/AmazonS3/latest/API/sig-v4-header-based-auth.html

// Signer produces the authentication headers for a request. It holds no
// mutable state; the same inputs at the same instant give the same headers.
type Signer struct {
	cred Credential
	now  func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a signer for cred.
func NewSigner(cred Credential, opts ...Option) *Signer {
	s := &Signer{
		cred: cred,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cred.IsAnonymous() {
		logger.Warn().Msg("signing without credentials; requests will only succeed against public buckets")
	}
	return s
}

// Credential returns the credential the signer was built with.
func (s *Signer) Credential() Credential {
	return s.cred
}

// Sign is SignAt with the signer's clock.
func (s *Signer) Sign(method, rawURL string, headers http.Header, payload []byte) (http.Header, error) {
	return s.SignAt(s.now(), method, rawURL, headers, payload)
}

// SignAt returns a copy of headers with Authorization, X-Amz-Date and
// X-Amz-Content-Sha256 added. rawURL must already carry its final query;
// the signer canonicalises parameter order and encoding itself. headers is
// never modified.
func (s *Signer) SignAt(t time.Time, method, rawURL string, headers http.Header, payload []byte) (http.Header, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	host := headers.Get("Host")
	if host == "" {
		host = u.Host
	}
	if host == "" {
		return nil, fmt.Errorf("url %q has no host", rawURL)
	}
	return s.sign(t, method, u, host, headers, payload), nil
}

// SignRequest signs req in place; payload must be the exact body req will send.
func (s *Signer) SignRequest(req *http.Request, payload []byte) error {
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	if host == "" {
		return fmt.Errorf("request to %q has no host", req.URL.String())
	}
	req.Header = s.sign(s.now(), req.Method, req.URL, host, req.Header, payload)
	return nil
}

func (s *Signer) sign(t time.Time, method string, u *url.URL, host string, headers http.Header, payload []byte) http.Header {
	t = t.UTC()
	timestamp := t.Format(Iso8601BasicFormat)
	date := t.Format(Iso8601DateFormat)
	payloadHash := HashPayload(payload)

	out := headers.Clone()
	if out == nil {
		out = make(http.Header)
	}
	out.Del(HeaderAuthorization)
	out.Set(HeaderAmzDate, timestamp)
	out.Set(HeaderContentSHA256, payloadHash)

	values, names := signableHeaders(out, host)
	creq := buildCanonicalRequest(method, u, values, names, payloadHash)

	region := s.cred.region()
	service := s.cred.service()
	scope := CredentialScope(date, region, service)
	stringToSign := StringToSign(timestamp, scope, creq)
	signingKey := DeriveSigningKey(s.cred.SecretKey, date, region, service)
	sig := CalculateSignature(signingKey, stringToSign)

	out.Set(HeaderAuthorization, fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		AuthHeaderV4,
		s.cred.AccessKeyID,
		scope,
		strings.Join(creq.SignedHeaders, ";"),
		sig,
	))

	logger.Trace().
		Str("method", creq.Method).
		Str("uri", creq.URI).
		Str("signed_headers", strings.Join(creq.SignedHeaders, ";")).
		Msg("signed request")

	return out
}

// signableHeaders picks host, content-type, content-md5, range and every
// x-amz-* header.
func signableHeaders(h http.Header, host string) (map[string][]string, []string) {
	values := map[string][]string{"host": {host}}
	names := []string{"host"}
	for name, vals := range h {
		lower := strings.ToLower(name)
		switch {
		case lower == "host":
			continue
		case lower == "content-type", lower == "content-md5", lower == "range",
			strings.HasPrefix(lower, "x-amz-"):
			values[lower] = append(values[lower], vals...)
			names = append(names, lower)
		}
	}
	return values, names
}
