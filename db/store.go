package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// Row is one stored record. Stores assign "id" and "createdAt" on insert.
type Row map[string]any

// Query selects rows from one collection. An empty Field matches every row.
type Query struct {
	Field   string
	Value   any
	OrderBy string
	Desc    bool
}

// Store is the per-collection persistence contract. No transactions are
// assumed; callers handle partial failure themselves.
type Store interface {
	Insert(ctx context.Context, collection string, row Row) (string, error)
	SelectByID(ctx context.Context, collection, id string) (Row, error)
	SelectAll(ctx context.Context, collection string, q Query) ([]Row, error)
	DeleteByID(ctx context.Context, collection, id string) error
	DeleteWhere(ctx context.Context, collection, field string, value any) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// insertable copies row without the store-owned keys and stamps createdAt.
func insertable(row Row, now time.Time) Row {
	out := make(Row, len(row)+1)
	for k, v := range row {
		if k == "id" || k == "_id" {
			continue
		}
		out[k] = v
	}
	if _, ok := out["createdAt"]; !ok {
		out["createdAt"] = now.UTC()
	}
	return out
}

func matches(row Row, q Query) bool {
	if q.Field == "" {
		return true
	}
	return compareValues(row[q.Field], q.Value) == 0
}

// sortRows orders rows by one field. The sort is stable so ties keep
// their read order.
func sortRows(rows []Row, field string, desc bool) {
	if field == "" {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareValues(rows[i][field], rows[j][field])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders the scalar types the stores hand back. Numbers are
// compared numerically whatever their width.
func compareValues(a, b any) int {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
