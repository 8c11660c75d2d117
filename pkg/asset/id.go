// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import "github.com/google/uuid"

// keyNamespace scopes the name-based ids derived from object keys.
var keyNamespace = uuid.MustParse("3f0c7a52-9d1e-4f6b-8a43-6c2b51e0d7a9")

// NewID returns a random record id.
func NewID() string {
	return uuid.NewString()
}

// IDForKey returns the id a record discovered under key always gets, so
// rebuilding the cache from a listing yields the same ids every time.
func IDForKey(key string) string {
	return uuid.NewSHA1(keyNamespace, []byte(key)).String()
}
