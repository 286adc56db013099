package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store used for development and tests.
type Memory struct {
	mu          sync.Mutex
	collections map[string][]Row
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string][]Row),
		now:         time.Now,
	}
}

func (m *Memory) Insert(ctx context.Context, collection string, row Row) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := insertable(row, m.now())
	id := uuid.NewString()
	stored["id"] = id
	m.collections[collection] = append(m.collections[collection], stored)
	return id, nil
}

func (m *Memory) SelectByID(ctx context.Context, collection, id string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.collections[collection] {
		if row["id"] == id {
			return copyRow(row), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SelectAll(ctx context.Context, collection string, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	var rows []Row
	for _, row := range m.collections[collection] {
		if matches(row, q) {
			rows = append(rows, copyRow(row))
		}
	}
	m.mu.Unlock()

	sortRows(rows, q.OrderBy, q.Desc)
	return rows, nil
}

func (m *Memory) DeleteByID(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.collections[collection]
	for i, row := range rows {
		if row["id"] == id {
			m.collections[collection] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteWhere(ctx context.Context, collection, field string, value any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := Query{Field: field, Value: value}
	kept := m.collections[collection][:0:0]
	var deleted int64
	for _, row := range m.collections[collection] {
		if matches(row, q) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.collections[collection] = kept
	return deleted, nil
}

// Count returns the number of rows in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close(ctx context.Context) error {
	return nil
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
