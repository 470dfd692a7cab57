// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package badgerstore implements docstore.Store on an embedded BadgerDB.
// Documents are JSON values keyed "<collection>/<id>". Badger's optimistic
// transactions give serialisable read-modify-write; commits that conflict
// are retried here, up to docstore.MaxTxAttempts.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"deskboard/internal/docstore"
)

// Store is a Badger-backed document store.
type Store struct {
	db      *badger.DB
	indexes *docstore.IndexSet
}

// Option configures a Store.
type Option func(*Store)

// WithIndexes replaces the declared composite indexes.
func WithIndexes(set *docstore.IndexSet) Option {
	return func(s *Store) { s.indexes = set }
}

// Open opens (or creates) a store at path. An empty path opens an
// in-memory store, which is what tests use.
func Open(path string, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}

	s := &Store{db: db, indexes: docstore.DefaultIndexes()}
	for _, opt := range opts {
		opt(s)
	}

	slog.Info("badger store opened", "path", path, "in_memory", path == "")
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func prefix(collection string) []byte {
	return []byte(collection + "/")
}

// Get reads a single document.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var doc docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = getDoc(txn, collection, id)
		return err
	})
	return doc, err
}

// Query scans the collection and filters in process.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.indexes.Require(q); err != nil {
		return nil, err
	}

	var docs []docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		docs, err = scan(ctx, txn, q)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	return docs, nil
}

// scan iterates the collection prefix in txn and returns the matching
// documents in query order.
func scan(ctx context.Context, txn *badger.Txn, q docstore.Query) ([]docstore.Document, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var docs []docstore.Document
	p := prefix(q.Collection)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", item.Key(), err)
		}
		fields, err := docstore.Decode(val)
		if err != nil {
			return nil, err
		}
		doc := docstore.Document{ID: string(item.Key()[len(p):]), Fields: fields}
		if q.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	q.SortDocuments(docs)
	return docs, nil
}

// Create stores a new document under a generated id.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	var id string
	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		var err error
		id, err = tx.Create(ctx, collection, fields)
		return err
	})
	return id, err
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Update(ctx, collection, id, fields)
	})
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Delete(ctx, collection, id)
	})
}

// RunTransaction runs fn inside a Badger read-write transaction, retrying
// on commit conflicts.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	for attempt := 1; attempt <= docstore.MaxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			return fn(ctx, &tx{txn: txn, indexes: s.indexes})
		})
		if errors.Is(err, badger.ErrConflict) {
			slog.Debug("badger transaction conflict, retrying", "attempt", attempt)
			continue
		}
		return err
	}
	return docstore.ErrAborted
}

// tx adapts a Badger transaction to docstore.Tx.
type tx struct {
	txn     *badger.Txn
	indexes *docstore.IndexSet
}

func (t *tx) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return getDoc(t.txn, collection, id)
}

// Query scans inside the transaction. Keys it reads are tracked for
// conflict detection; keys a concurrent transaction inserts are not.
func (t *tx) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := t.indexes.Require(q); err != nil {
		return nil, err
	}
	docs, err := scan(ctx, t.txn, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	return docs, nil
}

func (t *tx) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := docstore.NewID()
	if err := t.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (t *tx) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := docstore.Encode(fields)
	if err != nil {
		return err
	}
	if err := t.txn.Set(key(collection, id), data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (t *tx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := getDoc(t.txn, collection, id)
	if err != nil {
		return err
	}
	return t.Set(ctx, collection, id, docstore.Merge(doc.Fields, fields))
}

func (t *tx) Delete(ctx context.Context, collection, id string) error {
	if err := t.txn.Delete(key(collection, id)); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func getDoc(txn *badger.Txn, collection, id string) (docstore.Document, error) {
	item, err := txn.Get(key(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	fields, err := docstore.Decode(val)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}
