package population

import (
	"fmt"

	"github.com/felixgeelhaar/agentsim/domain/feed"
)

// SeedAuthor is the author recorded on seed posts.
const SeedAuthor = "seed"

// Content is the shared store of posts agents publish and engage with.
// IDs are assigned from a counter so that runs are reproducible.
type Content struct {
	posts  []feed.Post
	byID   map[string]int
	nextID int
}

// NewContent creates an empty content store.
func NewContent() *Content {
	return &Content{byID: make(map[string]int)}
}

// RestoreContent rebuilds a store from persisted posts and the ID counter.
func RestoreContent(posts []feed.Post, nextID int) (*Content, error) {
	c := NewContent()
	for _, p := range posts {
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate post %q", p.ID)
		}
		c.byID[p.ID] = len(c.posts)
		c.posts = append(c.posts, p)
	}
	if nextID < len(posts) {
		return nil, fmt.Errorf("post counter %d below post count %d", nextID, len(posts))
	}
	c.nextID = nextID
	return c, nil
}

// Publish appends a new post by author.
func (c *Content) Publish(author string, round int) feed.Post {
	return c.add(feed.Post{AuthorID: author, Round: round})
}

// Seed appends a seed post visible to every agent.
func (c *Content) Seed() feed.Post {
	return c.add(feed.Post{AuthorID: SeedAuthor, Seed: true})
}

func (c *Content) add(p feed.Post) feed.Post {
	c.nextID++
	p.ID = fmt.Sprintf("post-%d", c.nextID)
	c.byID[p.ID] = len(c.posts)
	c.posts = append(c.posts, p)
	return p
}

// Like increments the like count of a post.
func (c *Content) Like(postID string) (feed.Post, error) {
	i, ok := c.byID[postID]
	if !ok {
		return feed.Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, postID)
	}
	c.posts[i].Likes++
	return c.posts[i], nil
}

// Get returns a post by ID.
func (c *Content) Get(postID string) (feed.Post, bool) {
	i, ok := c.byID[postID]
	if !ok {
		return feed.Post{}, false
	}
	return c.posts[i], true
}

// Posts returns a copy of all posts, oldest first.
func (c *Content) Posts() []feed.Post {
	return append([]feed.Post(nil), c.posts...)
}

// Len returns the number of posts.
func (c *Content) Len() int {
	return len(c.posts)
}

// NextID returns the ID counter, persisted alongside the posts.
func (c *Content) NextID() int {
	return c.nextID
}
