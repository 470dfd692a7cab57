package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskboard/internal/docstore"
)

func openMemory(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	id, err := s.Create(ctx, docstore.CollectionPosts, map[string]any{"title": "hello", "viewCount": 0})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, docstore.CollectionPosts, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "hello", doc.Fields["title"])
	assert.Equal(t, json.Number("0"), doc.Fields["viewCount"])

	require.NoError(t, s.Update(ctx, docstore.CollectionPosts, id, map[string]any{"title": "changed"}))
	doc, err = s.Get(ctx, docstore.CollectionPosts, id)
	require.NoError(t, err)
	assert.Equal(t, "changed", doc.Fields["title"])
	assert.Contains(t, doc.Fields, "viewCount")

	require.NoError(t, s.Delete(ctx, docstore.CollectionPosts, id))
	_, err = s.Get(ctx, docstore.CollectionPosts, id)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdateMissingDocument(t *testing.T) {
	s := openMemory(t)
	err := s.Update(context.Background(), docstore.CollectionPosts, "nope", map[string]any{"a": 1})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestQueryFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	seed := []map[string]any{
		{"category": "tech", "tags": []string{"go"}, "createdAt": 100},
		{"category": "tech", "tags": []string{"rust"}, "createdAt": 300},
		{"category": "life", "tags": []string{"go"}, "createdAt": 200},
	}
	for _, f := range seed {
		_, err := s.Create(ctx, docstore.CollectionPosts, f)
		require.NoError(t, err)
	}
	// Documents of other collections must not leak into the scan.
	_, err := s.Create(ctx, "postscript", map[string]any{"category": "tech", "createdAt": 999})
	require.NoError(t, err)

	all, err := s.Query(ctx, docstore.From(docstore.CollectionPosts).OrderDesc("createdAt"))
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, json.Number("300"), all[0].Fields["createdAt"])
	assert.Equal(t, json.Number("100"), all[2].Fields["createdAt"])

	tech, err := s.Query(ctx, docstore.From(docstore.CollectionPosts).
		Where("category", docstore.OpEqual, "tech").OrderDesc("createdAt"))
	require.NoError(t, err)
	require.Len(t, tech, 2)
	assert.Equal(t, json.Number("300"), tech[0].Fields["createdAt"])

	gophers, err := s.Query(ctx, docstore.From(docstore.CollectionPosts).
		Where("tags", docstore.OpArrayContains, "go").OrderDesc("createdAt"))
	require.NoError(t, err)
	assert.Len(t, gophers, 2)
}

func TestQueryWithoutIndex(t *testing.T) {
	s := openMemory(t, WithIndexes(docstore.NewIndexSet()))

	_, err := s.Query(context.Background(), docstore.From(docstore.CollectionPosts).
		Where("category", docstore.OpEqual, "tech").OrderDesc("createdAt"))

	ie, ok := docstore.AsIndexRequired(err)
	require.True(t, ok)
	assert.Equal(t, docstore.CollectionPosts, ie.Collection)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	id, err := s.Create(ctx, docstore.CollectionPosts, map[string]any{"title": "keep"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Update(ctx, docstore.CollectionPosts, id, map[string]any{"title": "lost"}); err != nil {
			return err
		}
		if err := tx.Set(ctx, docstore.CollectionSettings, docstore.SettingsDocID, map[string]any{"x": 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	doc, err := s.Get(ctx, docstore.CollectionPosts, id)
	require.NoError(t, err)
	assert.Equal(t, "keep", doc.Fields["title"])
	_, err = s.Get(ctx, docstore.CollectionSettings, docstore.SettingsDocID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestTransactionReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, docstore.CollectionSettings, docstore.SettingsDocID, map[string]any{"n": 1}); err != nil {
			return err
		}
		doc, err := tx.Get(ctx, docstore.CollectionSettings, docstore.SettingsDocID)
		if err != nil {
			return err
		}
		assert.Equal(t, json.Number("1"), doc.Fields["n"])
		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentIncrementsAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	require.NoError(t, s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, "counters", "c", map[string]any{"n": 0})
	}))

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				doc, err := tx.Get(ctx, "counters", "c")
				if err != nil {
					return err
				}
				n, err := doc.Fields["n"].(json.Number).Int64()
				if err != nil {
					return err
				}
				return tx.Set(ctx, "counters", "c", map[string]any{"n": n + 1})
			})
		}()
	}
	wg.Wait()
	close(errs)

	committed := 0
	for err := range errs {
		if err == nil {
			committed++
		} else {
			assert.ErrorIs(t, err, docstore.ErrAborted)
		}
	}

	doc, err := s.Get(ctx, "counters", "c")
	require.NoError(t, err)
	n, err := doc.Fields["n"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(committed), n)
}
