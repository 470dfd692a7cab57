// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mapper converts raw stored documents into domain values. Every
// function here is pure and total: partially written or legacy records are
// filled with defaults instead of failing.
package mapper

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"deskboard/internal/docstore"
	"deskboard/internal/models"
)

// Stored field names of a post document.
const (
	FieldTitle        = "title"
	FieldContent      = "content"
	FieldCategory     = "category"
	FieldAuthor       = "author"
	FieldAuthorID     = "authorId"
	FieldTags         = "tags"
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
	FieldCommentCount = "commentCount"
	FieldViewCount    = "viewCount"

	// FieldCategories holds the ordered category list in the settings record.
	FieldCategories = "categories"
)

// UntitledTitle replaces a missing post title.
const UntitledTitle = "untitled"

// ToPost maps a stored post document. now is used only for IsNew.
func ToPost(doc docstore.Document, now time.Time) models.Post {
	f := doc.Fields
	p := models.Post{
		ID:           doc.ID,
		Title:        stringOr(f[FieldTitle], UntitledTitle),
		Content:      stringOr(f[FieldContent], ""),
		Category:     stringOr(f[FieldCategory], models.DefaultCategoryID),
		Author:       stringOr(f[FieldAuthor], ""),
		AuthorID:     stringOr(f[FieldAuthorID], ""),
		Tags:         Tags(f[FieldTags]),
		CreatedAt:    Time(f[FieldCreatedAt]),
		UpdatedAt:    Time(f[FieldUpdatedAt]),
		CommentCount: counter(f[FieldCommentCount]),
		ViewCount:    counter(f[FieldViewCount]),
	}
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	p.IsNew = IsNew(p.CreatedAt, now)
	return p
}

// IsNew reports whether createdAt lies within the freshness window of now.
// A zero createdAt is never new.
func IsNew(createdAt, now time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return now.Sub(createdAt) < models.FreshnessWindow
}

// Tags reads a tag set. Non-string entries and duplicates are dropped and
// first-seen order is kept. The result is never nil.
func Tags(v any) []string {
	tags := []string{}
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}
	switch raw := v.(type) {
	case []any:
		for _, el := range raw {
			if s, ok := el.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range raw {
			add(s)
		}
	}
	return tags
}

// Time reads a stored timestamp. Millisecond epoch numbers are the current
// format; RFC 3339 strings and time.Time values come from older writers.
// Anything else yields the zero time.
func Time(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case json.Number:
		if ms, err := t.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
		if f, err := t.Float64(); err == nil {
			return time.UnixMilli(int64(f))
		}
	case float64:
		return time.UnixMilli(int64(t))
	case int64:
		return time.UnixMilli(t)
	case int:
		return time.UnixMilli(int64(t))
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Millis is the stored representation of t.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// counter reads a non-negative integer counter.
func counter(v any) int {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0
	}
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
