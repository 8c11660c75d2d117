// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto/hmac"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/LeeDigitalWorks/assetvault/pkg/utils"

	"github.com/minio/sha256-simd"
)

// CanonicalRequest is the normalized form of an HTTP request that gets hashed
// into the string to sign. Building it twice from the same inputs yields the
// same bytes.
type CanonicalRequest struct {
	Method        string
	URI           string
	Query         string
	Headers       string // "name:value\n" lines, sorted by name
	SignedHeaders []string
	PayloadHash   string
}

// String renders the request in the exact layout the signature is computed over.
func (c CanonicalRequest) String() string {
	return strings.Join([]string{
		c.Method,
		c.URI,
		c.Query,
		c.Headers,
		strings.Join(c.SignedHeaders, ";"),
		c.PayloadHash,
	}, "\n")
}

// Hash returns hex(SHA256(String())).
func (c CanonicalRequest) Hash() string {
	return utils.Sha256Hex([]byte(c.String()))
}

// buildCanonicalRequest assembles the canonical request for the named headers.
// values maps lower-case header names to their raw values; names not present
// in values are skipped.
func buildCanonicalRequest(method string, u *url.URL, values map[string][]string, names []string, payloadHash string) CanonicalRequest {
	headers, signed := canonicalHeaders(values, names)
	return CanonicalRequest{
		Method:        strings.ToUpper(method),
		URI:           encodeCanonicalURI(u.Path),
		Query:         canonicalQueryString(u.RawQuery),
		Headers:       headers,
		SignedHeaders: signed,
		PayloadHash:   payloadHash,
	}
}

// encodeCanonicalURI encodes a path for the canonical URI. Each segment is
// URI-encoded on its own so slashes stay separators. S3 paths are encoded
// exactly once.
func encodeCanonicalURI(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = uriEncode(segment)
	}
	return "/" + strings.Join(segments, "/")
}

// canonicalQueryString decodes the raw query and re-encodes it with the
// RFC 3986 unreserved set, sorted by name then value. The X-Amz-Signature
// parameter of presigned URLs is never part of its own input.
func canonicalQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	type pair struct{ k, v string }
	var pairs []pair
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		if k == "X-Amz-Signature" {
			continue
		}
		pairs = append(pairs, pair{uriEncode(k), uriEncode(v)})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return strings.Join(parts, "&")
}

// canonicalHeaders returns the "name:value\n" block and the sorted list of
// names that actually had values.
func canonicalHeaders(values map[string][]string, names []string) (string, []string) {
	seen := make(map[string]struct{}, len(names))
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if _, dup := seen[n]; dup {
			continue
		}
		if len(values[n]) == 0 {
			continue
		}
		seen[n] = struct{}{}
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, name := range sorted {
		vals := values[name]
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = collapseSpaces(v)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(trimmed, ","))
		b.WriteByte('\n')
	}
	return b.String(), sorted
}

// collapseSpaces trims a header value and squeezes inner runs of spaces.
func collapseSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// uriEncode percent-encodes everything outside A-Z a-z 0-9 - _ . ~ with
// upper-case hex, as SigV4 requires. url.QueryEscape differs on spaces.
func uriEncode(s string) string {
	const hexUpper = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexUpper[c>>4])
		b.WriteByte(hexUpper[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// CredentialScope is date/region/service/aws4_request.
func CredentialScope(date, region, service string) string {
	return strings.Join([]string{date, region, service, Terminator}, "/")
}

// StringToSign joins the algorithm, timestamp, scope and canonical request hash.
func StringToSign(timestamp, scope string, creq CanonicalRequest) string {
	return strings.Join([]string{
		AuthHeaderV4,
		timestamp,
		scope,
		creq.Hash(),
	}, "\n")
}

// DeriveSigningKey runs the HMAC-SHA256 chain
//
//	kDate    = HMAC("AWS4" + secret, date)
//	kRegion  = HMAC(kDate, region)
//	kService = HMAC(kRegion, service)
//	kSigning = HMAC(kService, "aws4_request")
func DeriveSigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(Terminator))
}

// CalculateSignature returns hex(HMAC(signingKey, stringToSign)).
func CalculateSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// HashPayload returns the hex SHA-256 of payload. A nil or empty payload
// hashes to HashedEmptyPayload.
func HashPayload(payload []byte) string {
	return utils.Sha256Hex(payload)
}
