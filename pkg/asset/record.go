// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package asset defines the metadata record kept for every object in the
// library bucket, and the heuristics that classify objects by file name.
package asset

import (
	"maps"
	"slices"
	"time"
)

// Category is the coarse media type of an asset.
type Category string

const (
	CategoryVideo    Category = "video"
	CategoryImage    Category = "image"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryProject  Category = "project"
	CategoryOther    Category = "other"
)

// Uploader identity stamped on records discovered by reconciliation.
const (
	SyncUploaderID   = "sync"
	SyncUploaderName = "Sync"
)

// Record is the cached metadata of one object. Key joins it to the remote
// listing; ID is local and stable for the life of the record.
//
// Tags, Favorite, Shared, Metadata and the uploader fields are curated
// locally. Size, ETag and ModifiedAt always mirror the remote object.
type Record struct {
	ID           string            `json:"id"`
	Key          string            `json:"key"`
	Name         string            `json:"name"`
	FileType     string            `json:"file_type"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag,omitempty"`
	Category     Category          `json:"category"`
	Subcategory  string            `json:"subcategory,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	UploaderID   string            `json:"uploader_id,omitempty"`
	UploaderName string            `json:"uploader_name,omitempty"`
	Shared       bool              `json:"shared"`
	Favorite     bool              `json:"favorite"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ModifiedAt   time.Time         `json:"modified_at"`
}

// Clone returns a deep copy, so cached records can be handed out safely.
func (r Record) Clone() Record {
	r.Tags = slices.Clone(r.Tags)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

// HasTag reports whether tag is set on the record.
func (r Record) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// NormalizeTags lower-cases, de-duplicates and sorts tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortNewestFirst orders records by CreatedAt descending, breaking ties by
// Key so the order is total and repeatable.
func SortNewestFirst(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
}
