// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categories manages the ordered category list stored in the
// settings record. Every change is one store transaction; deleting a
// category moves its posts to the fallback category in the same
// transaction.
package categories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"deskboard/internal/docstore"
	"deskboard/internal/fault"
	"deskboard/internal/mapper"
	"deskboard/internal/models"
	"deskboard/internal/slug"
)

// Cache holds the last category list read from the store. Failures are the
// implementation's to log; the engine always falls back to the store.
type Cache interface {
	Get(ctx context.Context) ([]models.Category, bool)
	// Version returns a counter that Invalidate advances. ok is false when
	// it cannot be read.
	Version(ctx context.Context) (version int64, ok bool)
	// Set stores cats unless the cache was invalidated after version.
	Set(ctx context.Context, version int64, cats []models.Category)
	Invalidate(ctx context.Context)
}

// Engine runs category operations against a store.
type Engine struct {
	store     docstore.Store
	system    []models.Category
	systemIDs map[string]struct{}
	cache     Cache
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSystemCategories replaces the default system categories. The list
// must contain models.DefaultCategoryID.
func WithSystemCategories(cats []models.Category) Option {
	return func(e *Engine) { e.system = cats }
}

// WithCache enables a read cache for List.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithClock overrides the clock used when reassigned posts are touched.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an Engine over store.
func NewEngine(store docstore.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:  store,
		system: models.DefaultSystemCategories(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.systemIDs = make(map[string]struct{}, len(e.system))
	for _, c := range e.system {
		e.systemIDs[c.ID] = struct{}{}
	}
	if _, ok := e.systemIDs[models.DefaultCategoryID]; !ok {
		return nil, fmt.Errorf("system categories must include %q", models.DefaultCategoryID)
	}
	return e, nil
}

// IsSystem reports whether id is a system category.
func (e *Engine) IsSystem(id string) bool {
	_, ok := e.systemIDs[id]
	return ok
}

// List returns the categories in display order. Before Bootstrap has run it
// returns the system categories.
func (e *Engine) List(ctx context.Context) ([]models.Category, error) {
	var (
		version   int64
		cacheable bool
	)
	if e.cache != nil {
		if cats, ok := e.cache.Get(ctx); ok {
			return cats, nil
		}
		version, cacheable = e.cache.Version(ctx)
	}

	doc, err := e.store.Get(ctx, docstore.CollectionSettings, docstore.SettingsDocID)
	var cats []models.Category
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		cats = e.defaults()
	case err != nil:
		return nil, classify("list categories", "", err)
	default:
		cats = mapper.ToCategories(doc)
	}

	if cacheable {
		e.cache.Set(ctx, version, cats)
	}
	return cats, nil
}

// Bootstrap creates the settings record if needed and appends any missing
// system category. Existing entries keep their order.
func (e *Engine) Bootstrap(ctx context.Context) error {
	var added []string
	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		added = added[:0]
		fields, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}
		if fields != nil {
			present := make(map[string]struct{}, len(cats))
			for _, c := range cats {
				present[c.ID] = struct{}{}
			}
			for _, c := range e.system {
				if _, ok := present[c.ID]; !ok {
					cats = append(cats, c)
					added = append(added, c.ID)
				}
			}
			if len(added) == 0 {
				return nil
			}
		} else {
			for _, c := range cats {
				added = append(added, c.ID)
			}
		}
		return save(ctx, tx, fields, cats)
	})
	if err != nil {
		return classify("bootstrap categories", "", err)
	}

	if len(added) > 0 {
		e.invalidate(ctx)
		slog.Info("system categories ensured", "added", added)
	}
	return nil
}

// Add appends a category and returns its id, derived from name.
func (e *Engine) Add(ctx context.Context, name, icon string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", fault.Validation("a category name is required")
	}
	id := slug.Generate(name)
	if id == "" {
		return "", fault.ErrNoUsableID
	}
	if id == models.AllCategoriesID {
		return "", fault.Validation("%q is reserved", id)
	}

	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		fields, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}
		for _, c := range cats {
			if c.Name == name {
				return fault.ErrNameInUse
			}
			if c.ID == id {
				return fault.ErrIDInUse
			}
		}
		cats = append(cats, models.Category{ID: id, Name: name, Icon: strings.TrimSpace(icon)})
		return save(ctx, tx, fields, cats)
	})
	if err != nil {
		return "", classify("add category", id, err)
	}

	e.invalidate(ctx)
	slog.Info("category added", "id", id, "name", name)
	return id, nil
}

// Rename changes the display name of a non-system category. The id and the
// position are kept.
func (e *Engine) Rename(ctx context.Context, id, newName string) error {
	if e.IsSystem(id) {
		return fault.ErrSystemCategory
	}
	newName = normalizeName(newName)
	if newName == "" {
		return fault.Validation("a category name is required")
	}

	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		fields, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(cats, id)
		if idx < 0 {
			return fault.ErrCategoryNotFound
		}
		for i, c := range cats {
			if i != idx && c.Name == newName {
				return fault.ErrNameInUse
			}
		}
		cats[idx].Name = newName
		return save(ctx, tx, fields, cats)
	})
	if err != nil {
		return classify("rename category", id, err)
	}

	e.invalidate(ctx)
	slog.Info("category renamed", "id", id, "name", newName)
	return nil
}

// Delete removes a non-system category and moves its posts to the fallback
// category. Posts are looked up before the transaction to keep it small;
// inside it each one is re-read and only reassigned if it still points at
// id, and the category is queried again for posts that arrived since. A
// final sweep after commit catches posts whose creating transaction
// committed concurrently with this one.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if e.IsSystem(id) {
		return fault.ErrSystemCategory
	}
	// Added categories always have slug ids.
	if !slug.Valid(id) {
		return fault.ErrCategoryNotFound
	}

	docs, err := e.store.Query(ctx, postsIn(id))
	if err != nil {
		return classify("delete category", id, err)
	}

	moved := 0
	err = e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		moved = 0
		fields, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(cats, id)
		if idx < 0 {
			return fault.ErrCategoryNotFound
		}
		if indexOf(cats, models.DefaultCategoryID) < 0 {
			return fault.Validation("fallback category %q is missing", models.DefaultCategoryID)
		}

		now := e.now()
		n, err := reassignAll(ctx, tx, docs, id, now)
		if err != nil {
			return err
		}
		moved += n

		late, err := tx.Query(ctx, postsIn(id))
		if err != nil {
			return err
		}
		n, err = reassignAll(ctx, tx, late, id, now)
		if err != nil {
			return err
		}
		moved += n

		cats = append(cats[:idx], cats[idx+1:]...)
		return save(ctx, tx, fields, cats)
	})
	if err != nil {
		return classify("delete category", id, err)
	}
	e.invalidate(ctx)

	swept, err := e.sweep(ctx, id)
	if err != nil {
		return classify("sweep deleted category", id, err)
	}

	slog.Info("category deleted", "id", id, "posts_reassigned", moved+swept, "fallback", models.DefaultCategoryID)
	return nil
}

// sweep reassigns posts still pointing at a deleted category. It does
// nothing if the category has been added again in the meantime.
func (e *Engine) sweep(ctx context.Context, id string) (int, error) {
	docs, err := e.store.Query(ctx, postsIn(id))
	if err != nil || len(docs) == 0 {
		return 0, err
	}

	moved := 0
	err = e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		moved = 0
		_, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}
		if indexOf(cats, id) >= 0 {
			return nil
		}
		moved, err = reassignAll(ctx, tx, docs, id, e.now())
		return err
	})
	if moved > 0 {
		slog.Warn("reassigned posts created during category delete", "id", id, "posts", moved)
	}
	return moved, err
}

// Reorder replaces the stored order with ids. ids must be a permutation of
// the current ids, and system categories must keep their relative order.
func (e *Engine) Reorder(ctx context.Context, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fault.Validation("category %q is listed more than once", id)
		}
		seen[id] = struct{}{}
	}

	err := e.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		fields, cats, err := e.load(ctx, tx)
		if err != nil {
			return err
		}

		byID := make(map[string]models.Category, len(cats))
		var missing []string
		for _, c := range cats {
			byID[c.ID] = c
			if _, ok := seen[c.ID]; !ok {
				missing = append(missing, c.ID)
			}
		}
		var unknown []string
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		if len(missing) > 0 || len(unknown) > 0 {
			return fault.Validation("new order must list exactly the current categories (missing %v, unknown %v)",
				missing, unknown)
		}

		if !sameOrder(e.systemOrder(ids), e.systemOrder(models.CategoryIDs(cats))) {
			return fault.Validation("system categories cannot be reordered relative to each other")
		}

		next := make([]models.Category, len(ids))
		for i, id := range ids {
			next[i] = byID[id]
		}
		return save(ctx, tx, fields, next)
	})
	if err != nil {
		return classify("reorder categories", "", err)
	}

	e.invalidate(ctx)
	slog.Info("categories reordered", "order", ids)
	return nil
}

// load reads the settings record inside tx. A missing record yields nil
// fields and the system categories.
func (e *Engine) load(ctx context.Context, tx docstore.Tx) (map[string]any, []models.Category, error) {
	doc, err := tx.Get(ctx, docstore.CollectionSettings, docstore.SettingsDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, e.defaults(), nil
	}
	if err != nil {
		return nil, nil, err
	}
	return doc.Fields, mapper.ToCategories(doc), nil
}

func (e *Engine) defaults() []models.Category {
	return append([]models.Category(nil), e.system...)
}

func (e *Engine) systemOrder(ids []string) []string {
	var out []string
	for _, id := range ids {
		if e.IsSystem(id) {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) invalidate(ctx context.Context) {
	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
}

// save writes cats back, keeping any other settings fields.
func save(ctx context.Context, tx docstore.Tx, fields map[string]any, cats []models.Category) error {
	return tx.Set(ctx, docstore.CollectionSettings, docstore.SettingsDocID,
		docstore.Merge(fields, map[string]any{mapper.FieldCategories: mapper.FromCategories(cats)}))
}

func postsIn(id string) docstore.Query {
	return docstore.From(docstore.CollectionPosts).Where(mapper.FieldCategory, docstore.OpEqual, id)
}

func reassignAll(ctx context.Context, tx docstore.Tx, docs []docstore.Document, from string, now time.Time) (int, error) {
	moved := 0
	for _, d := range docs {
		n, err := reassign(ctx, tx, d.ID, from, now)
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}

// reassign moves one post from category from to the fallback category. It
// returns 0 when the post is gone or has already left from.
func reassign(ctx context.Context, tx docstore.Tx, postID, from string, now time.Time) (int, error) {
	doc, err := tx.Get(ctx, docstore.CollectionPosts, postID)
	if errors.Is(err, docstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	post := mapper.ToPost(doc, now)
	if post.Category != from {
		return 0, nil
	}

	updated := now
	if post.UpdatedAt.After(updated) {
		updated = post.UpdatedAt
	}
	err = tx.Update(ctx, docstore.CollectionPosts, postID, map[string]any{
		mapper.FieldCategory:  models.DefaultCategoryID,
		mapper.FieldUpdatedAt: mapper.Millis(updated),
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func indexOf(cats []models.Category, id string) int {
	for i, c := range cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// normalizeName trims and NFC-normalises a display name so that visually
// identical names compare equal.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func classify(op, id string, err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Error("category operation failed", "op", op, "id", id, "error", err)
	return fault.Transient(err)
}
