// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package pgstore implements docstore.Store on PostgreSQL. Every document
// is one JSONB row of the documents table created by the database
// migrations. Transactions run at SERIALIZABLE isolation and are re-run
// when PostgreSQL reports a serialization failure or deadlock.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"deskboard/internal/docstore"
)

// SQLSTATE codes that mean "run the transaction again".
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a PostgreSQL-backed document store.
type Store struct {
	db      *sql.DB
	indexes *docstore.IndexSet
}

// Option configures a Store.
type Option func(*Store)

// WithIndexes replaces the declared composite indexes. The default set
// matches the indexes created by the migrations.
func WithIndexes(set *docstore.IndexSet) Option {
	return func(s *Store) { s.indexes = set }
}

// New returns a Store backed by db. The schema must already be migrated.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, indexes: docstore.DefaultIndexes()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads a single document.
func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return getDoc(ctx, s.db, collection, id)
}

// Query translates q into SQL over the JSONB column.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.indexes.Require(q); err != nil {
		return nil, err
	}

	return queryDocs(ctx, s.db, q)
}

func queryDocs(ctx context.Context, db queryer, q docstore.Query) ([]docstore.Document, error) {
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := docstore.Decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// buildSelect renders q as a parameterised statement. Field names were
// checked by Query.Validate and are inlined so expression indexes apply.
func buildSelect(q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{q.Collection}
	b.WriteString(`SELECT id, doc FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		var operand any = f.Value
		if f.Op == docstore.OpArrayContains {
			operand = []any{f.Value}
		}
		encoded, err := json.Marshal(operand)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		args = append(args, string(encoded))

		switch f.Op {
		case docstore.OpArrayContains:
			fmt.Fprintf(&b, ` AND doc -> '%s' @> $%d::jsonb`, f.Field, len(args))
		case docstore.OpEqualOrUnset:
			fmt.Fprintf(&b, ` AND (doc -> '%[1]s' = $%[2]d::jsonb OR doc -> '%[1]s' IS NULL`+
				` OR jsonb_typeof(doc -> '%[1]s') <> 'string' OR btrim(doc ->> '%[1]s') = '')`, f.Field, len(args))
		default:
			fmt.Fprintf(&b, ` AND doc -> '%s' = $%d::jsonb`, f.Field, len(args))
		}
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY doc -> '%s' %s NULLS LAST`, q.OrderBy, dir)
	}
	return b.String(), args, nil
}

// Create inserts a new document under a generated id.
func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := docstore.NewID()
	if err := setDoc(ctx, s.db, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Update merges fields into an existing document with the jsonb || operator.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return updateDoc(ctx, s.db, collection, id, fields)
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	return deleteDoc(ctx, s.db, collection, id)
}

// RunTransaction runs fn in a SERIALIZABLE transaction, retrying when the
// commit (or any statement) fails with a serialization conflict.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	for attempt := 1; attempt <= docstore.MaxTxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if isRetryable(err) {
			slog.Debug("postgres transaction conflict, retrying", "attempt", attempt, "error", err)
			continue
		}
		return err
	}
	return docstore.ErrAborted
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(ctx, &tx{q: sqlTx, indexes: s.indexes}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// tx adapts *sql.Tx to docstore.Tx.
type tx struct {
	q       queryer
	indexes *docstore.IndexSet
}

func (t *tx) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	return getDoc(ctx, t.q, collection, id)
}

// Query runs inside the SERIALIZABLE transaction, so the rows it reads are
// covered by predicate locks.
func (t *tx) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := t.indexes.Require(q); err != nil {
		return nil, err
	}
	return queryDocs(ctx, t.q, q)
}

func (t *tx) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := docstore.NewID()
	if err := setDoc(ctx, t.q, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (t *tx) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	return setDoc(ctx, t.q, collection, id, fields)
}

func (t *tx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return updateDoc(ctx, t.q, collection, id, fields)
}

func (t *tx) Delete(ctx context.Context, collection, id string) error {
	return deleteDoc(ctx, t.q, collection, id)
}

func getDoc(ctx context.Context, q queryer, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := q.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := docstore.Decode(raw)
	if err != nil {
		return docstore.Document{}, err
	}
	return docstore.Document{ID: id, Fields: fields}, nil
}

func setDoc(ctx context.Context, q queryer, collection, id string, fields map[string]any) error {
	data, err := docstore.Encode(fields)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, doc, written_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET doc = EXCLUDED.doc, written_at = EXCLUDED.written_at`,
		collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func updateDoc(ctx context.Context, q queryer, collection, id string, fields map[string]any) error {
	data, err := docstore.Encode(fields)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb, written_at = NOW()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func deleteDoc(ctx context.Context, q queryer, collection, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}
