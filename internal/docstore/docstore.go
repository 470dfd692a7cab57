// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package docstore defines the document store boundary the access layer is
// written against. A store holds schemaless documents grouped in
// collections, answers simple filter+order queries, and offers a
// transaction primitive that retries its own commit conflicts.
//
// Two implementations exist: badgerstore (embedded) and pgstore (PostgreSQL).
package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Collection names used by the access layer.
const (
	CollectionPosts    = "posts"
	CollectionSettings = "settings"

	// SettingsDocID is the singleton settings record holding the category list.
	SettingsDocID = "global"
)

// MaxTxAttempts bounds how often a store re-runs a transaction function
// after a commit conflict.
const MaxTxAttempts = 5

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAborted is returned when a transaction kept conflicting with
	// concurrent writers until MaxTxAttempts was reached.
	ErrAborted = errors.New("transaction aborted after repeated conflicts")
)

// IndexRequiredError is returned when a compound query needs an index the
// store has not been given. Remediation tells an operator how to create it.
type IndexRequiredError struct {
	Collection  string
	Fields      []string
	Remediation string
}

// Error implements the error interface.
func (e *IndexRequiredError) Error() string {
	return fmt.Sprintf("query on %s requires an index on %v", e.Collection, e.Fields)
}

// AsIndexRequired returns the IndexRequiredError in err's chain, if any.
func AsIndexRequired(err error) (*IndexRequiredError, bool) {
	var ie *IndexRequiredError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Document is a stored record. Fields holds decoded JSON values; numbers
// are json.Number.
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is the backing document store.
type Store interface {
	// Get returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Create stores a new document under a store-assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// RunTransaction runs fn atomically. fn may be invoked more than once
	// when commits conflict and must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// Tx is the view of the store inside a transaction. Reads observe the
// transaction's own writes. Documents a query returns take part in
// conflict detection; documents a concurrent transaction inserts may not.
type Tx interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Set replaces (or creates) a document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// NewID returns a fresh store-assigned document id.
func NewID() string {
	return uuid.NewString()
}

// Merge returns a copy of base with patch applied on top-level keys.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
