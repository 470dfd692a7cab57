// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package posts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deskboard/internal/docstore"
	"deskboard/internal/mapper"
	"deskboard/internal/models"
)

var epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable clock for server-owned timestamps.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock { return &fakeClock{t: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// delayRecorder captures backoff delays and skips the sleep.
type delayRecorder struct {
	mu  sync.Mutex
	got []time.Duration
}

func (d *delayRecorder) record(delay time.Duration) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, delay)
	return 0
}

func (d *delayRecorder) delays() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.got...)
}

// seedCategories writes the settings record with the system categories
// plus any extra ids.
func seedCategories(t *testing.T, store docstore.Store, extra ...string) {
	t.Helper()
	cats := models.DefaultSystemCategories()
	for _, id := range extra {
		cats = append(cats, models.Category{ID: id, Name: id})
	}
	err := store.RunTransaction(context.Background(), func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, docstore.CollectionSettings, docstore.SettingsDocID, map[string]any{
			mapper.FieldCategories: mapper.FromCategories(cats),
		})
	})
	require.NoError(t, err)
}

func input(title, category, authorID string, tags ...string) models.PostInput {
	return models.PostInput{
		Title:    title,
		Content:  "body of " + title,
		Category: category,
		Author:   "Author " + authorID,
		AuthorID: authorID,
		Tags:     tags,
	}
}

func strPtr(s string) *string { return &s }
