// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package posts reads and mutates posts in the document store. Reads go
// through a Reader that retries transient failures with exponential
// backoff; writes go through a Mutator that enforces ownership.
package posts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"deskboard/internal/docstore"
	"deskboard/internal/fault"
	"deskboard/internal/mapper"
	"deskboard/internal/models"
)

// Read retry defaults: three attempts, sleeping 1s then 2s between them.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

// Reader runs post queries with bounded retry.
type Reader struct {
	store       docstore.Store
	maxAttempts int
	backoffBase time.Duration
	delay       func(time.Duration) time.Duration
	now         func() time.Time
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithRetry sets the attempt limit and the first backoff delay. Later
// delays double: base, 2*base, 4*base, ...
func WithRetry(maxAttempts int, base time.Duration) ReaderOption {
	return func(r *Reader) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if base > 0 {
			r.backoffBase = base
		}
	}
}

// WithDelayFunc passes every computed backoff delay through fn before
// sleeping. Tests use it to record delays without waiting.
func WithDelayFunc(fn func(time.Duration) time.Duration) ReaderOption {
	return func(r *Reader) { r.delay = fn }
}

// WithReaderClock overrides the clock used to derive IsNew.
func WithReaderClock(now func() time.Time) ReaderOption {
	return func(r *Reader) { r.now = now }
}

// NewReader returns a Reader over store.
func NewReader(store docstore.Store, opts ...ReaderOption) *Reader {
	r := &Reader{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchAll returns every post, newest first.
func (r *Reader) FetchAll(ctx context.Context) ([]models.Post, error) {
	return r.query(ctx, "fetch all", docstore.From(docstore.CollectionPosts).
		OrderDesc(mapper.FieldCreatedAt))
}

// FetchByCategory returns the posts of one category, newest first. An
// empty id or "all" is the same as FetchAll.
func (r *Reader) FetchByCategory(ctx context.Context, categoryID string) ([]models.Post, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" || categoryID == models.AllCategoriesID {
		return r.FetchAll(ctx)
	}
	// Posts without a stored category read as the fallback category.
	op := docstore.OpEqual
	if categoryID == models.DefaultCategoryID {
		op = docstore.OpEqualOrUnset
	}
	return r.query(ctx, "fetch by category", docstore.From(docstore.CollectionPosts).
		Where(mapper.FieldCategory, op, categoryID).
		OrderDesc(mapper.FieldCreatedAt))
}

// FetchByTag returns the posts carrying tag, newest first.
func (r *Reader) FetchByTag(ctx context.Context, tag string) ([]models.Post, error) {
	if tag == "" {
		return nil, fault.Validation("a tag is required")
	}
	return r.query(ctx, "fetch by tag", docstore.From(docstore.CollectionPosts).
		Where(mapper.FieldTags, docstore.OpArrayContains, tag).
		OrderDesc(mapper.FieldCreatedAt))
}

// FetchByID returns the post with the given id. A missing post is not an
// error: it returns (nil, nil).
func (r *Reader) FetchByID(ctx context.Context, id string) (*models.Post, error) {
	if id == "" {
		return nil, nil
	}

	var doc docstore.Document
	found := true
	err := r.withRetry(ctx, "fetch by id", func(ctx context.Context) error {
		var err error
		doc, err = r.store.Get(ctx, docstore.CollectionPosts, id)
		if errors.Is(err, docstore.ErrNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		slog.Debug("post not found", "id", id)
		return nil, nil
	}

	p := mapper.ToPost(doc, r.now())
	return &p, nil
}

func (r *Reader) query(ctx context.Context, op string, q docstore.Query) ([]models.Post, error) {
	var docs []docstore.Document
	err := r.withRetry(ctx, op, func(ctx context.Context) error {
		var err error
		docs, err = r.store.Query(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := r.now()
	out := make([]models.Post, len(docs))
	for i, d := range docs {
		out[i] = mapper.ToPost(d, now)
	}
	return out, nil
}

// backoff builds a fresh policy per call: maxAttempts-1 sleeps of base,
// 2*base, 4*base ... with no jitter.
func (r *Reader) backoff() retry.Backoff {
	b := retry.WithMaxRetries(uint64(r.maxAttempts-1), retry.NewExponential(r.backoffBase))
	if r.delay == nil {
		return b
	}
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := b.Next()
		if stop {
			return 0, true
		}
		return r.delay(d), false
	})
}

// withRetry runs fn until it succeeds, fails permanently, or exhausts the
// attempt budget. A missing index fails at once; other store errors are
// treated as transient. The caller only sees a generic message for those.
func (r *Reader) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ie, ok := docstore.AsIndexRequired(err); ok {
			slog.Error("query needs a missing index",
				"op", op,
				"collection", ie.Collection,
				"fields", ie.Fields,
				"remediation", ie.Remediation,
			)
			return fault.IndexRequired(ie.Remediation, err)
		}
		if ctx.Err() != nil {
			return err
		}
		var next time.Duration
		if attempt < r.maxAttempts {
			next = r.backoffBase << (attempt - 1)
		}
		slog.Warn("read attempt failed",
			"op", op,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"backoff", next,
			"error", err,
		)
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if fault.Is(err, fault.KindIndexRequired) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	slog.Error("read failed after retries",
		"op", op,
		"attempts", attempt,
		"error", err,
	)
	return fault.Transient(err)
}
