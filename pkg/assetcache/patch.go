// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package assetcache

import (
	"maps"
	"slices"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
)

// Patch is a partial update. Nil fields are left as they are.
//
// Tags replaces the tag set; AddTags/RemoveTags edit it in place and are
// applied after Tags. Metadata entries are merged key by key, and an empty
// value deletes the key.
type Patch struct {
	ID string

	Key         *string
	Name        *string
	FileType    *string
	Size        *int64
	ETag        *string
	Category    *asset.Category
	Subcategory *string

	Tags       *[]string
	AddTags    []string
	RemoveTags []string

	UploaderID   *string
	UploaderName *string
	Shared       *bool
	Favorite     *bool
	Metadata     map[string]string

	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

// Ptr returns a pointer to v, for filling Patch fields.
func Ptr[T any](v T) *T {
	return &v
}

// PatchFromRecord builds a patch that sets every field of r.
func PatchFromRecord(r asset.Record) Patch {
	tags := slices.Clone(r.Tags)
	return Patch{
		ID:           r.ID,
		Key:          Ptr(r.Key),
		Name:         Ptr(r.Name),
		FileType:     Ptr(r.FileType),
		Size:         Ptr(r.Size),
		ETag:         Ptr(r.ETag),
		Category:     Ptr(r.Category),
		Subcategory:  Ptr(r.Subcategory),
		Tags:         &tags,
		UploaderID:   Ptr(r.UploaderID),
		UploaderName: Ptr(r.UploaderName),
		Shared:       Ptr(r.Shared),
		Favorite:     Ptr(r.Favorite),
		Metadata:     maps.Clone(r.Metadata),
		CreatedAt:    timePtr(r.CreatedAt),
		ModifiedAt:   timePtr(r.ModifiedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (p Patch) apply(r asset.Record) asset.Record {
	setIf(&r.Key, p.Key)
	setIf(&r.Name, p.Name)
	setIf(&r.FileType, p.FileType)
	setIf(&r.Size, p.Size)
	setIf(&r.ETag, p.ETag)
	setIf(&r.Category, p.Category)
	setIf(&r.Subcategory, p.Subcategory)
	setIf(&r.UploaderID, p.UploaderID)
	setIf(&r.UploaderName, p.UploaderName)
	setIf(&r.Shared, p.Shared)
	setIf(&r.Favorite, p.Favorite)
	setIf(&r.CreatedAt, p.CreatedAt)
	setIf(&r.ModifiedAt, p.ModifiedAt)

	if p.Tags != nil {
		r.Tags = asset.NormalizeTags(*p.Tags)
	}
	if len(p.AddTags) > 0 {
		r.Tags = asset.NormalizeTags(append(r.Tags, p.AddTags...))
	}
	if len(p.RemoveTags) > 0 {
		drop := asset.NormalizeTags(p.RemoveTags)
		r.Tags = slices.DeleteFunc(r.Tags, func(t string) bool {
			return slices.Contains(drop, t)
		})
		if len(r.Tags) == 0 {
			r.Tags = nil
		}
	}

	for k, v := range p.Metadata {
		if r.Metadata == nil {
			r.Metadata = make(map[string]string)
		}
		if v == "" {
			delete(r.Metadata, k)
			continue
		}
		r.Metadata[k] = v
	}
	if len(r.Metadata) == 0 {
		r.Metadata = nil
	}

	if r.Category == "" && r.Name != "" {
		r.Category, r.Subcategory = asset.Classify(r.Name)
	}
	return r
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
