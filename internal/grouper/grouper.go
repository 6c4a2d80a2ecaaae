// Package grouper folds chunk-level retrieval hits into one result card per
// capstone project.
package grouper

import (
	"context"
	"fmt"

	"github.com/dshills/capstone-search/pkg/types"
)

// Enricher supplies per-project display data in batched lookups
type Enricher interface {
	AuthorsByProject(ctx context.Context, projectIDs []int64) (map[int64][]string, error)
	CategoriesByProject(ctx context.Context, projectIDs []int64) (map[int64]string, error)
}

// Grouper builds SearchCards from ranked retrieval results
type Grouper struct {
	enricher Enricher
}

// New creates a Grouper. A nil enricher leaves authors and categories empty.
func New(enricher Enricher) *Grouper {
	return &Grouper{enricher: enricher}
}

// Group collapses results by project in first-seen order. Input is assumed
// sorted best-first, so each card's similarity is its first hit's score and
// snippets follow input order. It does no ranking of its own.
func (g *Grouper) Group(ctx context.Context, results []types.RetrievalResult) ([]types.SearchCard, error) {
	if len(results) == 0 {
		return []types.SearchCard{}, nil
	}

	cards := make([]types.SearchCard, 0, len(results))
	index := make(map[int64]int, len(results))
	for _, r := range results {
		i, seen := index[r.ProjectID]
		if !seen {
			i = len(cards)
			index[r.ProjectID] = i
			cards = append(cards, types.SearchCard{
				ProjectID:  r.ProjectID,
				Title:      r.Title,
				Year:       r.Year,
				Similarity: r.Score,
				Snippets:   []string{},
				Authors:    []string{},
			})
		}
		cards[i].Snippets = append(cards[i].Snippets, r.Content)
	}

	if g.enricher == nil {
		return cards, nil
	}

	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ProjectID
	}

	authors, err := g.enricher.AuthorsByProject(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}
	categories, err := g.enricher.CategoriesByProject(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	for i := range cards {
		if names, ok := authors[cards[i].ProjectID]; ok {
			cards[i].Authors = names
		}
		cards[i].Category = categories[cards[i].ProjectID]
	}
	return cards, nil
}
