// Package checkpoint defines the versioned snapshot of a population and the
// store contract used to persist it.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/agent"
	"github.com/felixgeelhaar/agentsim/domain/feed"
	"github.com/felixgeelhaar/agentsim/domain/population"
)

// SchemaVersion is the current checkpoint document version.
const SchemaVersion = 1

// Checkpoint is a complete snapshot of the population after a round.
type Checkpoint struct {
	SchemaVersion int              `json:"schemaVersion"`
	RoundNumber   int              `json:"roundNumber"`
	SimulationID  string           `json:"simulationId"`
	Agents        []agent.Snapshot `json:"agents"`
	GlobalMetrics map[string]int64 `json:"globalMetrics"`
	Content       Content          `json:"content"`
	CreatedAt     time.Time        `json:"createdAt"`
	Checksum      string           `json:"checksum"`
}

// Content is the persisted content store.
type Content struct {
	Posts  []feed.Post `json:"posts"`
	NextID int         `json:"nextId"`
}

// Info describes a stored checkpoint without loading it.
type Info struct {
	Ref         string `json:"ref"`
	RoundNumber int    `json:"roundNumber"`
}

// FromPopulation captures pop. Agents keep their turn order and histories
// keep their insertion order.
func FromPopulation(pop *population.State, now time.Time) *Checkpoint {
	agents := pop.Agents()
	snaps := make([]agent.Snapshot, 0, len(agents))
	for _, a := range agents {
		snaps = append(snaps, a.Snapshot())
	}
	return &Checkpoint{
		SchemaVersion: SchemaVersion,
		RoundNumber:   pop.RoundNumber,
		SimulationID:  pop.SimulationID,
		Agents:        snaps,
		GlobalMetrics: pop.Counters(),
		Content: Content{
			Posts:  pop.Content().Posts(),
			NextID: pop.Content().NextID(),
		},
		CreatedAt: now,
	}
}

// Population rebuilds a population from the checkpoint.
func (c *Checkpoint) Population() (*population.State, error) {
	agents := make([]*agent.Runtime, 0, len(c.Agents))
	for _, s := range c.Agents {
		rt, err := agent.RestoreRuntime(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		agents = append(agents, rt)
	}
	content, err := population.RestoreContent(c.Content.Posts, c.Content.NextID)
	if err != nil {
		return nil, fmt.Errorf("%w: content: %w", ErrCorrupt, err)
	}
	pop, err := population.Restore(c.SimulationID, c.RoundNumber, agents, c.GlobalMetrics, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return pop, nil
}

// ComputeChecksum returns the sha256 of the document with the checksum field blanked.
func (c *Checkpoint) ComputeChecksum() (string, error) {
	doc := *c
	doc.Checksum = ""
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal stamps the checksum.
func (c *Checkpoint) Seal() error {
	sum, err := c.ComputeChecksum()
	if err != nil {
		return err
	}
	c.Checksum = sum
	return nil
}

// Verify checks the schema version first, then the checksum.
func (c *Checkpoint) Verify() error {
	if c.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, c.SchemaVersion, SchemaVersion)
	}
	sum, err := c.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if sum != c.Checksum {
		return fmt.Errorf("%w: checksum mismatch for round %d", ErrCorrupt, c.RoundNumber)
	}
	return nil
}

// Encode seals the checkpoint and renders the on-disk document.
func Encode(c *Checkpoint) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil checkpoint", ErrInvalidCheckpoint)
	}
	if c.RoundNumber < 0 {
		return nil, fmt.Errorf("%w: negative round %d", ErrInvalidCheckpoint, c.RoundNumber)
	}
	if err := c.Seal(); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint: %w", err)
	}
	return data, nil
}

// Decode parses and verifies a document produced by Encode.
func Decode(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return &c, nil
}
