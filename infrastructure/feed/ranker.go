// Package feed provides candidate suppliers for the decision pipeline.
package feed

import (
	"context"
	"sort"

	"github.com/felixgeelhaar/agentsim/domain/feed"
)

// Score weights.
const (
	recencyWeight    = 0.6
	popularityWeight = 0.4
)

// Ranker ranks the content store for an agent. It never shows an agent its
// own posts and is fully deterministic for a given view.
type Ranker struct{}

// NewRanker creates a ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// Candidates implements feed.Supplier.
func (r *Ranker) Candidates(ctx context.Context, agentID string, view feed.View) ([]feed.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]feed.Item, 0, len(view.Posts))
	for _, p := range view.Posts {
		if p.AuthorID == agentID {
			continue
		}
		items = append(items, feed.Item{
			PostID:   p.ID,
			AuthorID: p.AuthorID,
			Score:    Score(p, view.Round),
			Likes:    p.Likes,
			Round:    p.Round,
		})
	}

	// Stable keeps store order among equal scores.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})

	if view.Limit > 0 && len(items) > view.Limit {
		items = items[:view.Limit]
	}
	return items, nil
}

// Score rates a post in [0,1] by recency and popularity.
func Score(p feed.Post, round int) float64 {
	age := round - p.Round
	if age < 0 {
		age = 0
	}
	recency := 1 / float64(1+age)
	popularity := float64(p.Likes) / float64(p.Likes+1)
	return recencyWeight*recency + popularityWeight*popularity
}
