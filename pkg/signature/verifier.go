// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/s3err"
)

// DefaultMaxSkew is how far a request timestamp may drift from the server clock.
const DefaultMaxSkew = 15 * time.Minute

// CredentialStore resolves an access key to its secret.
type CredentialStore interface {
	LookupSecret(ctx context.Context, accessKey string) (secret string, ok bool)
}

// StaticCredentials is an access key -> secret map.
type StaticCredentials map[string]string

func (s StaticCredentials) LookupSecret(_ context.Context, accessKey string) (string, bool) {
	secret, ok := s[accessKey]
	return secret, ok
}

// V4Verifier checks Signature Version 4 Authorization headers on incoming
// requests. It shares canonicalisation with Signer so a request signed by
// one verifies with the other.
type V4Verifier struct {
	store   CredentialStore
	maxSkew time.Duration
	now     func() time.Time
}

// NewV4Verifier creates a verifier backed by store.
func NewV4Verifier(store CredentialStore) *V4Verifier {
	return &V4Verifier{
		store:   store,
		maxSkew: DefaultMaxSkew,
		now:     time.Now,
	}
}

// WithVerifierClock overrides the verifier time source.
func (v *V4Verifier) WithVerifierClock(now func() time.Time) *V4Verifier {
	v.now = now
	return v
}

// authInfo contains parsed authentication information from request
type authInfo struct {
	accessKey       string
	date            string // YYYYMMDD from the credential scope
	timestamp       string // YYYYMMDDTHHMMSSZ
	region          string
	service         string
	signedHeaders   []string
	signature       string
	credentialScope string
}

// VerifyRequest authenticates r and returns the access key that signed it.
func (v *V4Verifier) VerifyRequest(r *http.Request) (string, s3err.ErrorCode) {
	auth, err := extractAuthInfo(r)
	if err != nil {
		return "", s3err.ErrAuthHeaderMalformed
	}

	signedAt, err := time.Parse(Iso8601BasicFormat, auth.timestamp)
	if err != nil {
		return "", s3err.ErrAuthHeaderMalformed
	}
	if skew := v.now().Sub(signedAt); skew > v.maxSkew || skew < -v.maxSkew {
		return "", s3err.ErrRequestTimeTooSkewed
	}
	if signedAt.UTC().Format(Iso8601DateFormat) != auth.date {
		return "", s3err.ErrSignatureDoesNotMatch
	}

	secret, found := v.store.LookupSecret(r.Context(), auth.accessKey)
	if !found {
		return "", s3err.ErrInvalidAccessKeyID
	}

	payloadHash := r.Header.Get(HeaderContentSHA256)
	if payloadHash == "" {
		payloadHash = HashedEmptyPayload
	}

	creq := buildCanonicalRequest(r.Method, r.URL, requestHeaderValues(r, auth.signedHeaders), auth.signedHeaders, payloadHash)
	if len(creq.SignedHeaders) != len(auth.signedHeaders) {
		// A signed header the request no longer carries.
		return "", s3err.ErrSignatureDoesNotMatch
	}

	stringToSign := StringToSign(auth.timestamp, auth.credentialScope, creq)
	signingKey := DeriveSigningKey(secret, auth.date, auth.region, auth.service)
	expected := CalculateSignature(signingKey, stringToSign)

	if subtle.ConstantTimeCompare([]byte(auth.signature), []byte(expected)) != 1 {
		return "", s3err.ErrSignatureDoesNotMatch
	}
	return auth.accessKey, s3err.ErrNone
}

// extractAuthInfo parses
// "AWS4-HMAC-SHA256 Credential=..., SignedHeaders=..., Signature=..."
func extractAuthInfo(r *http.Request) (*authInfo, error) {
	authHeader := r.Header.Get(HeaderAuthorization)
	if !strings.HasPrefix(authHeader, AuthHeaderV4+" ") {
		return nil, fmt.Errorf("invalid authorization header")
	}

	auth := &authInfo{}
	for _, part := range strings.Split(strings.TrimPrefix(authHeader, AuthHeaderV4+" "), ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch k {
		case "Credential":
			// accessKey/date/region/service/aws4_request
			credParts := strings.Split(val, "/")
			if len(credParts) != 5 || credParts[4] != Terminator {
				return nil, fmt.Errorf("invalid credential format")
			}
			auth.accessKey = credParts[0]
			auth.date = credParts[1]
			auth.region = credParts[2]
			auth.service = credParts[3]
			auth.credentialScope = strings.Join(credParts[1:], "/")
		case "SignedHeaders":
			auth.signedHeaders = strings.Split(val, ";")
		case "Signature":
			auth.signature = val
		}
	}

	if auth.credentialScope == "" || auth.signature == "" || len(auth.signedHeaders) == 0 {
		return nil, fmt.Errorf("missing required auth fields")
	}

	auth.timestamp = r.Header.Get(HeaderAmzDate)
	if auth.timestamp == "" {
		if dateHeader := r.Header.Get("Date"); dateHeader != "" {
			if t, err := time.Parse(time.RFC1123, dateHeader); err == nil {
				auth.timestamp = t.UTC().Format(Iso8601BasicFormat)
			}
		}
	}
	if auth.timestamp == "" {
		return nil, fmt.Errorf("missing X-Amz-Date header")
	}

	return auth, nil
}

// requestHeaderValues collects the values of the signed headers as the
// server sees them. Go moves Host and Content-Length out of r.Header.
func requestHeaderValues(r *http.Request, signedHeaders []string) map[string][]string {
	values := make(map[string][]string, len(signedHeaders))
	for _, h := range signedHeaders {
		h = strings.ToLower(strings.TrimSpace(h))
		switch h {
		case "host":
			if r.Host != "" {
				values[h] = []string{r.Host}
			}
		case "content-length":
			if vals := r.Header.Values(h); len(vals) > 0 {
				values[h] = vals
			} else if r.ContentLength >= 0 {
				values[h] = []string{strconv.FormatInt(r.ContentLength, 10)}
			}
		default:
			if vals := r.Header.Values(h); len(vals) > 0 {
				values[h] = vals
			}
		}
	}
	return values
}
