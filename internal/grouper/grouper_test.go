package grouper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/capstone-search/pkg/types"
)

type fakeEnricher struct {
	authors    map[int64][]string
	categories map[int64]string
	err        error
	lookups    [][]int64
}

func (f *fakeEnricher) AuthorsByProject(ctx context.Context, ids []int64) (map[int64][]string, error) {
	f.lookups = append(f.lookups, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.authors, nil
}

func (f *fakeEnricher) CategoriesByProject(ctx context.Context, ids []int64) (map[int64]string, error) {
	f.lookups = append(f.lookups, ids)
	return f.categories, nil
}

func year(y int) *int { return &y }

func TestGroup(t *testing.T) {
	enricher := &fakeEnricher{
		authors:    map[int64][]string{1: {"Ada", "Grace"}},
		categories: map[int64]string{1: "Capstone", 2: "CS 499"},
	}
	results := []types.RetrievalResult{
		{ChunkID: 10, ProjectID: 1, Title: "Drones", Year: year(2022), Content: "first", Score: 0.95},
		{ChunkID: 20, ProjectID: 2, Title: "Sensors", Content: "other", Score: 0.80},
		{ChunkID: 11, ProjectID: 1, Title: "Drones", Year: year(2022), Content: "second", Score: 0.70},
	}

	cards, err := New(enricher).Group(context.Background(), results)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, int64(1), cards[0].ProjectID)
	assert.Equal(t, 0.95, cards[0].Similarity)
	assert.Equal(t, []string{"first", "second"}, cards[0].Snippets)
	assert.Equal(t, []string{"Ada", "Grace"}, cards[0].Authors)
	assert.Equal(t, "Capstone", cards[0].Category)
	assert.Equal(t, 2022, *cards[0].Year)

	assert.Equal(t, int64(2), cards[1].ProjectID)
	assert.Equal(t, []string{}, cards[1].Authors)
	assert.Nil(t, cards[1].Year)

	// One batched lookup each, keyed by distinct project ids
	require.Len(t, enricher.lookups, 2)
	assert.Equal(t, []int64{1, 2}, enricher.lookups[0])
}

func TestGroup_Empty(t *testing.T) {
	enricher := &fakeEnricher{}
	cards, err := New(enricher).Group(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cards)
	assert.Empty(t, enricher.lookups)
}

func TestGroup_NilEnricher(t *testing.T) {
	cards, err := New(nil).Group(context.Background(), []types.RetrievalResult{{ProjectID: 3, Content: "x", Score: 0.1}})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Empty(t, cards[0].Category)
}

func TestGroup_LookupFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeEnricher{err: boom}).Group(context.Background(), []types.RetrievalResult{{ProjectID: 1}})
	assert.ErrorIs(t, err, boom)
}
