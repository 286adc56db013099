package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore fails inserts into one collection after a number of successes.
type failingStore struct {
	*Memory
	collection string
	after      int
	inserts    int
}

func (f *failingStore) Insert(ctx context.Context, collection string, row Row) (string, error) {
	if collection == f.collection {
		if f.inserts >= f.after {
			return "", errors.New("disk full")
		}
		f.inserts++
	}
	return f.Memory.Insert(ctx, collection, row)
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(NewMemory(), nil)

	rec, err := repo.Save(ctx, "Alice Doe", sampleAnalysis())
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	detail, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, detail.ID)
	assert.Equal(t, "Alice Doe", detail.CaseName)
	assert.Equal(t, *sampleAnalysis(), detail.CaseAnalysis)
}

func TestGetUnknownID(t *testing.T) {
	repo := NewAnalysisRepository(NewMemory(), nil)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRollsBackOnChildFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Memory: NewMemory(), collection: CollTimelineEvent, after: 1}
	repo := NewAnalysisRepository(store, nil)

	_, err := repo.Save(ctx, "Alice Doe", sampleAnalysis())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 0, store.Count(CollAnalysis))
	for _, collection := range childCollections {
		assert.Equal(t, 0, store.Count(collection), collection)
	}
}

func TestSaveParentFailureWritesNothing(t *testing.T) {
	store := &failingStore{Memory: NewMemory(), collection: CollAnalysis}
	repo := NewAnalysisRepository(store, nil)

	_, err := repo.Save(context.Background(), "x", sampleAnalysis())
	require.Error(t, err)
	for _, collection := range childCollections {
		assert.Equal(t, 0, store.Count(collection))
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	mem.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	repo := NewAnalysisRepository(mem, nil)

	first, err := repo.Save(ctx, "First", sampleAnalysis())
	require.NoError(t, err)
	second, err := repo.Save(ctx, "Second", sampleAnalysis())
	require.NoError(t, err)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Alice Doe", list[0].PersonName)
	assert.Equal(t, 72.0, list[0].RiskScore)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	repo := NewAnalysisRepository(mem, nil)

	keep, err := repo.Save(ctx, "Keep", sampleAnalysis())
	require.NoError(t, err)
	drop, err := repo.Save(ctx, "Drop", sampleAnalysis())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, drop.ID))

	_, err = repo.Get(ctx, drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 3, mem.Count(CollKeyQuote))

	kept, err := repo.Get(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, kept.KeyQuotes, 3)

	assert.ErrorIs(t, repo.Delete(ctx, drop.ID), ErrNotFound)
}
