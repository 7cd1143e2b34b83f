// Package feed defines the content items agents browse and the supplier
// boundary that ranks them.
package feed

import "context"

// Post is a piece of content in the shared store.
type Post struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`
	Round    int    `json:"round"`
	Likes    int    `json:"likes"`
	Seed     bool   `json:"seed,omitempty"`
}

// Item is a ranked candidate offered to an agent.
type Item struct {
	PostID   string  `json:"postId"`
	AuthorID string  `json:"authorId"`
	Score    float64 `json:"score"`
	Likes    int     `json:"likes"`
	Round    int     `json:"round"`
}

// View is what the supplier is allowed to see when ranking for an agent.
type View struct {
	// Round is the current round number.
	Round int

	// Turn is the agent's position in the round's turn order and Agents
	// the number of turns in the round.
	Turn   int
	Agents int

	// Limit caps the number of returned items. Zero means no limit.
	Limit int

	// Posts is the current content store, oldest first.
	Posts []Post
}

// Supplier produces ranked candidate items for an agent.
// Failures must wrap ErrSupplierUnavailable.
type Supplier interface {
	Candidates(ctx context.Context, agentID string, view View) ([]Item, error)
}

// SupplierFunc adapts a function to the Supplier interface.
type SupplierFunc func(ctx context.Context, agentID string, view View) ([]Item, error)

// Candidates calls f.
func (f SupplierFunc) Candidates(ctx context.Context, agentID string, view View) ([]Item, error) {
	return f(ctx, agentID, view)
}

// Top returns the highest scored item. Items are expected in rank order,
// so this is the first one.
func Top(items []Item) (Item, bool) {
	if len(items) == 0 {
		return Item{}, false
	}
	return items[0], true
}
