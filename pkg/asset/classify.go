// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package asset

import (
	"path"
	"regexp"
	"strings"
	"unicode"
)

type kind struct {
	category    Category
	subcategory string
}

var extensionKinds = map[string]kind{
	// video
	"mp4": {CategoryVideo, "footage"}, "mov": {CategoryVideo, "footage"}, "avi": {CategoryVideo, "footage"},
	"mkv": {CategoryVideo, "footage"}, "webm": {CategoryVideo, "web"}, "m4v": {CategoryVideo, "footage"},
	"mxf": {CategoryVideo, "broadcast"}, "braw": {CategoryVideo, "raw"}, "r3d": {CategoryVideo, "raw"},
	// image
	"jpg": {CategoryImage, "photo"}, "jpeg": {CategoryImage, "photo"}, "png": {CategoryImage, "graphic"},
	"gif": {CategoryImage, "animation"}, "webp": {CategoryImage, "web"}, "svg": {CategoryImage, "vector"},
	"heic": {CategoryImage, "photo"}, "tif": {CategoryImage, "print"}, "tiff": {CategoryImage, "print"},
	"psd": {CategoryImage, "layered"}, "cr2": {CategoryImage, "raw"}, "nef": {CategoryImage, "raw"},
	"arw": {CategoryImage, "raw"}, "dng": {CategoryImage, "raw"},
	// audio
	"mp3": {CategoryAudio, "music"}, "wav": {CategoryAudio, "master"}, "aac": {CategoryAudio, "music"},
	"flac": {CategoryAudio, "master"}, "ogg": {CategoryAudio, "music"}, "m4a": {CategoryAudio, "music"},
	"aif": {CategoryAudio, "master"}, "aiff": {CategoryAudio, "master"},
	// document
	"pdf": {CategoryDocument, "pdf"}, "doc": {CategoryDocument, "text"}, "docx": {CategoryDocument, "text"},
	"txt": {CategoryDocument, "text"}, "md": {CategoryDocument, "text"}, "rtf": {CategoryDocument, "text"},
	"xls": {CategoryDocument, "spreadsheet"}, "xlsx": {CategoryDocument, "spreadsheet"}, "csv": {CategoryDocument, "spreadsheet"},
	"ppt": {CategoryDocument, "presentation"}, "pptx": {CategoryDocument, "presentation"}, "key": {CategoryDocument, "presentation"},
	// project files
	"prproj": {CategoryProject, "premiere"}, "aep": {CategoryProject, "after-effects"}, "drp": {CategoryProject, "resolve"},
	"fcpxml": {CategoryProject, "final-cut"}, "veg": {CategoryProject, "vegas"}, "blend": {CategoryProject, "blender"},
	"c4d": {CategoryProject, "cinema4d"}, "aepx": {CategoryProject, "after-effects"}, "zip": {CategoryProject, "archive"},
}

// Keyword hints found in file names, mapped to the tag they imply.
var nameHints = []struct {
	re  *regexp.Regexp
	tag string
}{
	{regexp.MustCompile(`(?i)\b(4k|uhd|2160p)\b`), "4k"},
	{regexp.MustCompile(`(?i)\b(1080p|fullhd|fhd)\b`), "1080p"},
	{regexp.MustCompile(`(?i)\b(final|approved)\b`), "final"},
	{regexp.MustCompile(`(?i)\b(draft|wip)\b`), "draft"},
	{regexp.MustCompile(`(?i)\b(logo|brand(ing)?)\b`), "branding"},
	{regexp.MustCompile(`(?i)\b(thumb(nail)?)\b`), "thumbnail"},
	{regexp.MustCompile(`(?i)\b(interview)\b`), "interview"},
	{regexp.MustCompile(`(?i)\b(b-?roll)\b`), "b-roll"},
	{regexp.MustCompile(`(?i)\b(raw)\b`), "raw"},
	{regexp.MustCompile(`(?i)\b(v\d+)\b`), "versioned"},
}

// Extension returns the lower-case extension of name without the dot.
func Extension(name string) string {
	ext := path.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Classify maps a file name to its category and subcategory by extension.
func Classify(name string) (Category, string) {
	if k, ok := extensionKinds[Extension(name)]; ok {
		return k.category, k.subcategory
	}
	return CategoryOther, ""
}

// HeuristicTags derives tags from a file name: the category, the extension and
// any recognised keyword hints.
func HeuristicTags(name string) []string {
	category, _ := Classify(name)
	ext := Extension(name)

	tags := []string{string(category)}
	if ext != "" {
		tags = append(tags, ext)
	}

	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	// word boundaries do not split on '_', so treat it as a separator
	base = strings.NewReplacer("_", " ", ".", " ").Replace(base)
	for _, hint := range nameHints {
		if hint.re.MatchString(base) {
			tags = append(tags, hint.tag)
		}
	}
	return NormalizeTags(tags)
}

// DisplayName turns an object key into a human readable name: the file name
// without the "{millis}-{token}-" upload prefix.
func DisplayName(key string) string {
	base := path.Base(key)
	if base == "." || base == "/" {
		return key
	}
	parts := strings.SplitN(base, "-", 3)
	if len(parts) == 3 && isDigits(parts[0]) && len(parts[0]) >= 10 && isHex(parts[1]) {
		return parts[2]
	}
	return base
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
