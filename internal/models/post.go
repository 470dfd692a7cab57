// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// FreshnessWindow is how long after creation a post is reported as new.
const FreshnessWindow = 24 * time.Hour

// Post is a bulletin-board entry as returned to callers. IsNew is derived at
// read time and never stored.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Category     string    `json:"category"`
	Author       string    `json:"author"`
	AuthorID     string    `json:"authorId"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	CommentCount int       `json:"commentCount"`
	ViewCount    int       `json:"viewCount"`
	IsNew        bool      `json:"isNew"`
}

// PostInput carries the caller-supplied fields of a new post. Server-owned
// fields (timestamps, counters, id) are deliberately absent.
type PostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Author   string   `json:"author"`
	AuthorID string   `json:"authorId"`
	Tags     []string `json:"tags"`
}

// PostPatch is a partial update. Nil fields are left untouched. ID, AuthorID
// and CreatedAt are decoded so they can be recognised and dropped; they are
// never written.
type PostPatch struct {
	ID           *string    `json:"id,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Content      *string    `json:"content,omitempty"`
	Category     *string    `json:"category,omitempty"`
	Author       *string    `json:"author,omitempty"`
	AuthorID     *string    `json:"authorId,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	CommentCount *int       `json:"commentCount,omitempty"`
	ViewCount    *int       `json:"viewCount,omitempty"`
}
