// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package objectstore

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/assetvault/pkg/asset"
)

const maxNameLength = 128

// Route picks the folder an upload lands in. The first non-empty field
// wins; with none set the asset category decides.
type Route struct {
	Folder  string
	Project string
	Client  string
}

var categoryFolders = map[asset.Category]string{
	asset.CategoryVideo:    "videos",
	asset.CategoryImage:    "images",
	asset.CategoryAudio:    "audio",
	asset.CategoryDocument: "documents",
	asset.CategoryProject:  "projects",
	asset.CategoryOther:    "other",
}

// KeyGenerator builds object keys of the form
// {folder}/{unixMillis}-{8 hex}-{sanitized name}.
type KeyGenerator struct {
	now    func() time.Time
	random io.Reader
}

func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now, random: rand.Reader}
}

// Folder resolves the folder for route. Each rule is tried in order and a
// rule whose value sanitizes to nothing falls through to the next one.
func (g *KeyGenerator) Folder(route Route, category asset.Category) string {
	var segments []string
	for _, p := range strings.Split(route.Folder, "/") {
		if p = sanitizeComponent(p); p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) > 0 {
		return strings.Join(segments, "/")
	}
	if p := sanitizeComponent(route.Project); p != "" {
		return "projects/" + p
	}
	if c := sanitizeComponent(route.Client); c != "" {
		return "clients/" + c
	}
	if f, ok := categoryFolders[category]; ok {
		return f
	}
	return categoryFolders[asset.CategoryOther]
}

// sanitizeComponent cleans one folder level. Slashes become '_' and a
// result made only of dots and underscores is empty.
func sanitizeComponent(s string) string {
	s = mapKeyChars(strings.TrimSpace(s))
	if strings.Trim(s, "._") == "" {
		return ""
	}
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

// Generate returns a fresh key for a file called name.
func (g *KeyGenerator) Generate(name string, category asset.Category, route Route) (string, error) {
	token := make([]byte, 4)
	if _, err := io.ReadFull(g.random, token); err != nil {
		return "", err
	}

	clean := SanitizeName(name)
	if clean == "" {
		clean = "file"
	}

	var b strings.Builder
	b.WriteString(g.Folder(route, category))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(g.now().UnixMilli(), 10))
	b.WriteByte('-')
	b.WriteString(hex.EncodeToString(token))
	b.WriteByte('-')
	b.WriteString(clean)
	return b.String(), nil
}

// SanitizeName replaces every character outside [A-Za-z0-9._-] with '_',
// collapses runs of '_' and cuts the result to 128 bytes.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	out := mapKeyChars(name)
	if len(out) > maxNameLength {
		// keep the extension when cutting
		ext := path.Ext(out)
		if ext != "" && len(ext) < maxNameLength/4 {
			out = out[:maxNameLength-len(ext)] + ext
		} else {
			out = out[:maxNameLength]
		}
	}
	return out
}

// mapKeyChars replaces characters outside [A-Za-z0-9._-] with '_' and
// collapses runs of '_'.
func mapKeyChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isKeyChar(c) {
			c = '_'
		}
		if c == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isKeyChar(c byte) bool {
	return ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') ||
		c == '.' || c == '_' || c == '-'
}
