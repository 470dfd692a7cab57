package docstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(id string, fields map[string]any) Document {
	return Document{ID: id, Fields: fields}
}

func TestQueryMatches(t *testing.T) {
	d := doc("p1", map[string]any{
		"category": "tech",
		"tags":     []any{"go", "retro"},
	})

	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{name: "no filters", q: From(CollectionPosts), want: true},
		{name: "equal hit", q: From(CollectionPosts).Where("category", OpEqual, "tech"), want: true},
		{name: "equal miss", q: From(CollectionPosts).Where("category", OpEqual, "Tech"), want: false},
		{name: "contains hit", q: From(CollectionPosts).Where("tags", OpArrayContains, "retro"), want: true},
		{name: "contains miss", q: From(CollectionPosts).Where("tags", OpArrayContains, "Retro"), want: false},
		{name: "contains on scalar", q: From(CollectionPosts).Where("category", OpArrayContains, "tech"), want: false},
		{name: "missing field", q: From(CollectionPosts).Where("author", OpEqual, "x"), want: false},
		{name: "equal or unset hit", q: From(CollectionPosts).Where("category", OpEqualOrUnset, "tech"), want: true},
		{name: "equal or unset miss", q: From(CollectionPosts).Where("category", OpEqualOrUnset, "general"), want: false},
		{name: "equal or unset on missing field", q: From(CollectionPosts).Where("author", OpEqualOrUnset, "x"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Matches(d))
		})
	}
}

func TestEqualOrUnsetMatchesBlankValues(t *testing.T) {
	q := From(CollectionPosts).Where("category", OpEqualOrUnset, "general")
	for name, v := range map[string]any{"null": nil, "empty": "", "blank": "  ", "number": json.Number("3")} {
		assert.True(t, q.Matches(doc("p", map[string]any{"category": v})), name)
	}
	assert.False(t, q.Matches(doc("p", map[string]any{"category": "notice"})))
}

func TestSortDocumentsDescending(t *testing.T) {
	docs := []Document{
		doc("old", map[string]any{"createdAt": json.Number("100")}),
		doc("none", map[string]any{}),
		doc("new", map[string]any{"createdAt": json.Number("300")}),
		doc("mid", map[string]any{"createdAt": int64(200)}),
	}

	From(CollectionPosts).OrderDesc("createdAt").SortDocuments(docs)

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"new", "mid", "old", "none"}, ids)
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, From(CollectionPosts).Where("category", OpEqual, "x").OrderDesc("createdAt").Validate())
	assert.Error(t, From("").Validate())
	assert.Error(t, From(CollectionPosts).Where("doc'; drop", OpEqual, "x").Validate())
	assert.Error(t, From(CollectionPosts).Where("category", Op("like"), "x").Validate())
}

func TestIndexSetRequire(t *testing.T) {
	set := DefaultIndexes()

	require.NoError(t, set.Require(From(CollectionPosts).OrderDesc("createdAt")))
	require.NoError(t, set.Require(From(CollectionPosts).Where("category", OpEqual, "x")))
	require.NoError(t, set.Require(From(CollectionPosts).Where("category", OpEqual, "x").OrderDesc("createdAt")))

	err := set.Require(From(CollectionPosts).Where("author", OpEqual, "x").OrderDesc("createdAt"))
	ie, ok := AsIndexRequired(err)
	require.True(t, ok)
	assert.Equal(t, []string{"author", "createdAt"}, ie.Fields)
	assert.Contains(t, ie.Remediation, "CREATE INDEX")
	assert.Contains(t, ie.Remediation, "(doc -> 'author')")
}

func TestDecodeUsesNumbers(t *testing.T) {
	fields, err := Decode([]byte(`{"createdAt": 1700000000123, "tags": ["a"]}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1700000000123"), fields["createdAt"])
	assert.Equal(t, []any{"a"}, fields["tags"])
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	base := map[string]any{"a": 1, "b": 2}
	out := Merge(base, map[string]any{"b": 3})
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, out)
	assert.Equal(t, 2, base["b"])
}
