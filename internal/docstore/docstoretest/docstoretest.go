// Package docstoretest provides store helpers for tests: an in-memory
// Badger store and a decorator that injects failures.
package docstoretest

import (
	"context"
	"sync"
	"testing"

	"deskboard/internal/docstore"
	"deskboard/internal/docstore/badgerstore"
)

// NewMemory opens an in-memory Badger store closed at test cleanup.
func NewMemory(t testing.TB, opts ...badgerstore.Option) *badgerstore.Store {
	t.Helper()
	s, err := badgerstore.Open("", opts...)
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Operation names accepted by Flaky.FailNext and Flaky.Calls.
const (
	OpGet    = "get"
	OpQuery  = "query"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpTx     = "tx"
)

// Flaky wraps a store and fails selected calls with queued errors. It
// also counts calls per operation.
type Flaky struct {
	docstore.Store

	mu       sync.Mutex
	queued   map[string][]error
	calls    map[string]int
	txWrites map[int]error
}

// NewFlaky wraps inner.
func NewFlaky(inner docstore.Store) *Flaky {
	return &Flaky{
		Store:  inner,
		queued: map[string][]error{},
		calls:  map[string]int{},
	}
}

// FailNext makes the next len(errs) calls of op fail with errs in order.
func (f *Flaky) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[op] = append(f.queued[op], errs...)
}

// FailTxWrite makes the n-th write (1-based) inside the next transaction
// fail with err, aborting the whole transaction.
func (f *Flaky) FailTxWrite(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txWrites = map[int]error{n: err}
}

// Calls returns how many times op was invoked.
func (f *Flaky) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Flaky) next(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	q := f.queued[op]
	if len(q) == 0 {
		return nil
	}
	f.queued[op] = q[1:]
	return q[0]
}

func (f *Flaky) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := f.next(OpGet); err != nil {
		return docstore.Document{}, err
	}
	return f.Store.Get(ctx, collection, id)
}

func (f *Flaky) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := f.next(OpQuery); err != nil {
		return nil, err
	}
	return f.Store.Query(ctx, q)
}

func (f *Flaky) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := f.next(OpCreate); err != nil {
		return "", err
	}
	return f.Store.Create(ctx, collection, fields)
}

func (f *Flaky) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := f.next(OpUpdate); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, id, fields)
}

func (f *Flaky) Delete(ctx context.Context, collection, id string) error {
	if err := f.next(OpDelete); err != nil {
		return err
	}
	return f.Store.Delete(ctx, collection, id)
}

func (f *Flaky) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := f.next(OpTx); err != nil {
		return err
	}
	f.mu.Lock()
	writes := f.txWrites
	f.txWrites = nil
	f.mu.Unlock()

	return f.Store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return fn(ctx, &flakyTx{Tx: tx, fail: writes})
	})
}

// flakyTx fails the configured write ordinal.
type flakyTx struct {
	docstore.Tx
	n    int
	fail map[int]error
}

func (t *flakyTx) write() error {
	t.n++
	return t.fail[t.n]
}

func (t *flakyTx) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := t.write(); err != nil {
		return "", err
	}
	return t.Tx.Create(ctx, collection, fields)
}

func (t *flakyTx) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.Set(ctx, collection, id, fields)
}

func (t *flakyTx) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.Update(ctx, collection, id, fields)
}

func (t *flakyTx) Delete(ctx context.Context, collection, id string) error {
	if err := t.write(); err != nil {
		return err
	}
	return t.Tx.Delete(ctx, collection, id)
}
