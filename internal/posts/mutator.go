// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package posts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"deskboard/internal/docstore"
	"deskboard/internal/fault"
	"deskboard/internal/mapper"
	"deskboard/internal/models"
)

// Mutator writes posts. Update, Delete and Move take the acting user's id;
// when it is non-empty the stored authorId must match it. An empty acting
// user is the trusted in-process path and skips the check.
//
// The ownership check and the write run in one store transaction, so a
// concurrent writer cannot slip in between them.
type Mutator struct {
	store docstore.Store
	now   func() time.Time
}

// MutatorOption configures a Mutator.
type MutatorOption func(*Mutator)

// WithMutatorClock overrides the clock used for server-owned timestamps.
func WithMutatorClock(now func() time.Time) MutatorOption {
	return func(m *Mutator) { m.now = now }
}

// NewMutator returns a Mutator over store.
func NewMutator(store docstore.Store, opts ...MutatorOption) *Mutator {
	m := &Mutator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a new post and returns its id. Timestamps and counters are
// always set here and never taken from the caller.
func (m *Mutator) Create(ctx context.Context, in models.PostInput) (string, error) {
	required := []struct{ field, value string }{
		{mapper.FieldTitle, in.Title},
		{mapper.FieldContent, in.Content},
		{mapper.FieldCategory, in.Category},
		{mapper.FieldAuthor, in.Author},
		{mapper.FieldAuthorID, in.AuthorID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return "", fault.Validation("%s is required", r.field)
		}
	}

	category := strings.TrimSpace(in.Category)
	now := mapper.Millis(m.now())
	fields := map[string]any{
		mapper.FieldTitle:        strings.TrimSpace(in.Title),
		mapper.FieldContent:      in.Content,
		mapper.FieldCategory:     category,
		mapper.FieldAuthor:       strings.TrimSpace(in.Author),
		mapper.FieldAuthorID:     in.AuthorID,
		mapper.FieldTags:         cleanTags(in.Tags),
		mapper.FieldCreatedAt:    now,
		mapper.FieldUpdatedAt:    now,
		mapper.FieldCommentCount: 0,
		mapper.FieldViewCount:    0,
	}

	var id string
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := requireCategory(ctx, tx, category); err != nil {
			return err
		}
		var err error
		id, err = tx.Create(ctx, docstore.CollectionPosts, fields)
		return err
	})
	if err != nil {
		return "", classifyWrite("create post", "", err)
	}

	slog.Info("post created", "id", id, "category", category, "author_id", in.AuthorID)
	return id, nil
}

// Update applies patch to a post. id, authorId and createdAt in the patch
// are ignored; updatedAt is always set to the current time.
func (m *Mutator) Update(ctx context.Context, id string, patch models.PostPatch, actingUserID string) error {
	if patch.ID != nil || patch.AuthorID != nil || patch.CreatedAt != nil {
		slog.Debug("dropping immutable fields from post patch", "id", id)
	}

	fields, err := patchFields(patch)
	if err != nil {
		return err
	}

	err = m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := loadOwned(ctx, tx, id, actingUserID, m.now())
		if err != nil {
			return err
		}
		if c, ok := fields[mapper.FieldCategory].(string); ok && c != current.Category {
			if err := requireCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		fields[mapper.FieldUpdatedAt] = m.bumpedUpdatedAt(current)
		return tx.Update(ctx, docstore.CollectionPosts, id, fields)
	})
	if err != nil {
		return classifyWrite("update post", id, err)
	}

	slog.Info("post updated", "id", id, "acting_user", actingUserID)
	return nil
}

// Delete removes a post permanently.
func (m *Mutator) Delete(ctx context.Context, id string, actingUserID string) error {
	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := loadOwned(ctx, tx, id, actingUserID, m.now()); err != nil {
			return err
		}
		return tx.Delete(ctx, docstore.CollectionPosts, id)
	})
	if err != nil {
		return classifyWrite("delete post", id, err)
	}

	slog.Info("post deleted", "id", id, "acting_user", actingUserID)
	return nil
}

// Move changes only the category of a post. Moving a post to the category
// it is already in fails with fault.ErrAlreadyInCategory.
func (m *Mutator) Move(ctx context.Context, id, categoryID, actingUserID string) error {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return fault.Validation("a target category is required")
	}

	err := m.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := loadOwned(ctx, tx, id, actingUserID, m.now())
		if err != nil {
			return err
		}
		if current.Category == categoryID {
			return fault.ErrAlreadyInCategory
		}
		if err := requireCategory(ctx, tx, categoryID); err != nil {
			return err
		}
		return tx.Update(ctx, docstore.CollectionPosts, id, map[string]any{
			mapper.FieldCategory:  categoryID,
			mapper.FieldUpdatedAt: m.bumpedUpdatedAt(current),
		})
	})
	if err != nil {
		return classifyWrite("move post", id, err)
	}

	slog.Info("post moved", "id", id, "category", categoryID, "acting_user", actingUserID)
	return nil
}

// bumpedUpdatedAt keeps updatedAt non-decreasing even if the clock steps back.
func (m *Mutator) bumpedUpdatedAt(current models.Post) int64 {
	now := m.now()
	if current.UpdatedAt.After(now) {
		now = current.UpdatedAt
	}
	return mapper.Millis(now)
}

// loadOwned reads a post inside tx and checks that actingUserID, when
// set, is its author.
func loadOwned(ctx context.Context, tx docstore.Tx, id, actingUserID string, now time.Time) (models.Post, error) {
	if id == "" {
		return models.Post{}, fault.ErrPostNotFound
	}
	doc, err := tx.Get(ctx, docstore.CollectionPosts, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Post{}, fault.Wrap(fault.ErrPostNotFound, err)
	}
	if err != nil {
		return models.Post{}, err
	}

	post := mapper.ToPost(doc, now)
	if actingUserID != "" && post.AuthorID != actingUserID {
		slog.Warn("post mutation denied",
			"id", id,
			"author_id", post.AuthorID,
			"acting_user", actingUserID,
		)
		return models.Post{}, fault.ErrNotOwner
	}
	return post, nil
}

// requireCategory fails unless categoryID is in the stored category list.
// Before the settings record exists only the fallback category is valid.
func requireCategory(ctx context.Context, tx docstore.Tx, categoryID string) error {
	doc, err := tx.Get(ctx, docstore.CollectionSettings, docstore.SettingsDocID)
	if errors.Is(err, docstore.ErrNotFound) {
		if categoryID == models.DefaultCategoryID {
			return nil
		}
		return fault.Validation("unknown category %q", categoryID)
	}
	if err != nil {
		return err
	}
	for _, c := range mapper.ToCategories(doc) {
		if c.ID == categoryID {
			return nil
		}
	}
	return fault.Validation("unknown category %q", categoryID)
}

// patchFields converts the mutable part of a patch into stored fields.
func patchFields(p models.PostPatch) (map[string]any, error) {
	fields := map[string]any{}
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return nil, fault.Validation("title cannot be empty")
		}
		fields[mapper.FieldTitle] = t
	}
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return nil, fault.Validation("content cannot be empty")
		}
		fields[mapper.FieldContent] = *p.Content
	}
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		if c == "" {
			return nil, fault.Validation("category cannot be empty")
		}
		fields[mapper.FieldCategory] = c
	}
	if p.Author != nil {
		a := strings.TrimSpace(*p.Author)
		if a == "" {
			return nil, fault.Validation("author cannot be empty")
		}
		fields[mapper.FieldAuthor] = a
	}
	if p.Tags != nil {
		fields[mapper.FieldTags] = cleanTags(p.Tags)
	}
	if p.CommentCount != nil {
		if *p.CommentCount < 0 {
			return nil, fault.Validation("commentCount cannot be negative")
		}
		fields[mapper.FieldCommentCount] = *p.CommentCount
	}
	if p.ViewCount != nil {
		if *p.ViewCount < 0 {
			return nil, fault.Validation("viewCount cannot be negative")
		}
		fields[mapper.FieldViewCount] = *p.ViewCount
	}
	return fields, nil
}

// cleanTags trims tags and drops blanks and duplicates.
func cleanTags(tags []string) []string {
	trimmed := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return mapper.Tags(trimmed)
}

// classifyWrite passes access-layer errors through and turns anything else
// from the store into a transient failure. Writes are not retried here.
func classifyWrite(op, id string, err error) error {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	slog.Error("post write failed", "op", op, "id", id, "error", err)
	return fault.Transient(err)
}
