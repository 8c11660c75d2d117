// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cat  Category
		sub  string
	}{
		{"clip.MP4", CategoryVideo, "footage"},
		{"cover.jpeg", CategoryImage, "photo"},
		{"theme.wav", CategoryAudio, "master"},
		{"brief.pdf", CategoryDocument, "pdf"},
		{"edit.prproj", CategoryProject, "premiere"},
		{"README", CategoryOther, ""},
		{"archive.tar.gz", CategoryOther, ""},
	}

	for _, tt := range tests {
		cat, sub := Classify(tt.name)
		assert.Equal(t, tt.cat, cat, tt.name)
		assert.Equal(t, tt.sub, sub, tt.name)
	}
}

func TestHeuristicTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"4k", "final", "mov", "video"}, HeuristicTags("videos/1700000000000-ab12cd34-Launch_FINAL_4K.mov"))
	assert.Equal(t, []string{"branding", "image", "png"}, HeuristicTags("logo.png"))
	assert.Equal(t, []string{"other"}, HeuristicTags("Makefile"))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cat.png", DisplayName("images/1700000000000-ab12cd34-cat.png"))
	assert.Equal(t, "my-file-name.txt", DisplayName("docs/1700000000000-0f0f0f0f-my-file-name.txt"))
	assert.Equal(t, "plain.txt", DisplayName("docs/plain.txt"))
	assert.Equal(t, "2024-report.pdf", DisplayName("2024-report.pdf"))
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, NormalizeTags([]string{" B", "a", "b", ""}))
	assert.Nil(t, NormalizeTags(nil))
	assert.Nil(t, NormalizeTags([]string{"  "}))
}

func TestSortNewestFirst(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Key: "b", CreatedAt: t0},
		{Key: "c", CreatedAt: t0.Add(time.Hour)},
		{Key: "a", CreatedAt: t0},
	}
	SortNewestFirst(records)

	assert.Equal(t, []string{"c", "a", "b"}, []string{records[0].Key, records[1].Key, records[2].Key})
}

func TestRecord_CloneIsDeep(t *testing.T) {
	t.Parallel()

	r := Record{Tags: []string{"a"}, Metadata: map[string]string{"k": "v"}}
	c := r.Clone()
	c.Tags[0] = "changed"
	c.Metadata["k"] = "changed"

	assert.Equal(t, "a", r.Tags[0])
	assert.Equal(t, "v", r.Metadata["k"])
}
