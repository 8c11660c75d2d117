// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package library

import (
	"context"
	"strings"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
)

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Category   asset.Category
	Tag        string
	UploaderID string
	Favorite   bool
	Shared     bool
	// Query matches case-insensitively against name and key.
	Query string
	Limit int
}

func (f Filter) match(r asset.Record) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Tag != "" && !r.HasTag(strings.ToLower(f.Tag)) {
		return false
	}
	if f.UploaderID != "" && r.UploaderID != f.UploaderID {
		return false
	}
	if f.Favorite && !r.Favorite {
		return false
	}
	if f.Shared && !r.Shared {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(r.Name), q) && !strings.Contains(strings.ToLower(r.Key), q) {
			return false
		}
	}
	return true
}

// Find returns cached assets matching f, newest first.
func (s *Service) Find(ctx context.Context, f Filter) []asset.Record {
	var out []asset.Record
	for _, r := range s.cache.GetAll(ctx) {
		if !f.match(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
