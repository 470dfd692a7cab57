// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"fmt"
	"strings"
)

// IndexSet lists the composite indexes a store has been given. Compound
// queries (filter plus ordering) are refused unless a matching index is
// declared, the way hosted document databases behave.
type IndexSet struct {
	indexes map[string]struct{}
}

// NewIndexSet declares composite indexes. Each index is a collection and
// its field list, filter fields first and the order field last.
func NewIndexSet(defs ...IndexDef) *IndexSet {
	s := &IndexSet{indexes: make(map[string]struct{}, len(defs))}
	for _, d := range defs {
		s.indexes[indexKey(d.Collection, d.Fields)] = struct{}{}
	}
	return s
}

// IndexDef names one composite index.
type IndexDef struct {
	Collection string
	Fields     []string
}

// DefaultIndexes are the composite indexes the access layer's post queries
// rely on. The PostgreSQL migrations create the same set.
func DefaultIndexes() *IndexSet {
	return NewIndexSet(
		IndexDef{Collection: CollectionPosts, Fields: []string{"category", "createdAt"}},
		IndexDef{Collection: CollectionPosts, Fields: []string{"tags", "createdAt"}},
	)
}

// Require returns an *IndexRequiredError when q is compound and no index
// covers it. Simple queries always pass.
func (s *IndexSet) Require(q Query) error {
	if s == nil || !q.Compound() {
		return nil
	}
	fields := make([]string, 0, len(q.Filters)+1)
	for _, f := range q.Filters {
		fields = append(fields, f.Field)
	}
	fields = append(fields, q.OrderBy)
	if _, ok := s.indexes[indexKey(q.Collection, fields)]; ok {
		return nil
	}
	return &IndexRequiredError{
		Collection:  q.Collection,
		Fields:      fields,
		Remediation: remediation(q.Collection, fields),
	}
}

func indexKey(collection string, fields []string) string {
	return collection + "|" + strings.Join(fields, ",")
}

// remediation renders the migration an operator would add for the index.
func remediation(collection string, fields []string) string {
	exprs := make([]string, len(fields))
	for i, f := range fields {
		exprs[i] = fmt.Sprintf("(doc -> '%s')", f)
	}
	name := "documents_" + collection + "_" + strings.ToLower(strings.Join(fields, "_")) + "_idx"
	return fmt.Sprintf("CREATE INDEX %s ON documents (%s) WHERE collection = '%s';",
		name, strings.Join(exprs, ", "), collection)
}
