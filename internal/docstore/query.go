// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Op is a filter operator.
type Op string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual Op = "=="
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains Op = "array-contains"
	// OpEqualOrUnset matches like OpEqual and also matches documents whose
	// field is missing or holds no non-blank string.
	OpEqualOrUnset Op = "==-or-unset"
)

// fieldName restricts field paths so adapters can inline them safely.
var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Filter is one predicate of a query.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// From starts a query on collection.
func From(collection string) Query {
	return Query{Collection: collection}
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// OrderDesc orders results by field, newest/largest first.
func (q Query) OrderDesc(field string) Query {
	q.OrderBy = field
	q.Descending = true
	return q
}

// Compound reports whether the query combines a filter with an ordering.
func (q Query) Compound() bool {
	return len(q.Filters) > 0 && q.OrderBy != ""
}

// Validate checks operators and field names.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("query: empty collection")
	}
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return fmt.Errorf("query: invalid field %q", f.Field)
		}
		if f.Op != OpEqual && f.Op != OpArrayContains && f.Op != OpEqualOrUnset {
			return fmt.Errorf("query: unsupported operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !fieldName.MatchString(q.OrderBy) {
		return fmt.Errorf("query: invalid order field %q", q.OrderBy)
	}
	return nil
}

// String renders the query for logs.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for _, f := range q.Filters {
		fmt.Fprintf(&b, " where %s %s %v", f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		fmt.Fprintf(&b, " order by %s", q.OrderBy)
		if q.Descending {
			b.WriteString(" desc")
		}
	}
	return b.String()
}

// Matches evaluates the query's filters against a document in process.
func (q Query) Matches(doc Document) bool {
	for _, f := range q.Filters {
		v := doc.Fields[f.Field]
		switch f.Op {
		case OpEqual:
			if compareValues(v, f.Value) != 0 {
				return false
			}
		case OpEqualOrUnset:
			if !unset(v) && compareValues(v, f.Value) != 0 {
				return false
			}
		case OpArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			found := false
			for _, el := range arr {
				if compareValues(el, f.Value) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// unset reports whether v holds no usable string.
func unset(v any) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}

// SortDocuments orders docs by the query's OrderBy field. Documents missing
// the field sort last regardless of direction.
func (q Query) SortDocuments(docs []Document) {
	if q.OrderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Fields[q.OrderBy]
		b, bok := docs[j].Fields[q.OrderBy]
		if !aok || !bok {
			return aok && !bok
		}
		c := compareValues(a, b)
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders two decoded JSON values. Numbers compare
// numerically, strings and times lexically/chronologically; values of
// different kinds compare by kind.
func compareValues(a, b any) int {
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
		return -1
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return strings.Compare(as, bs)
		}
		if _, ok := number(b); ok {
			return 1
		}
		return -1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if a == nil && b == nil {
		return 0
	}
	if fmt.Sprint(a) == fmt.Sprint(b) {
		return 0
	}
	return 1
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
