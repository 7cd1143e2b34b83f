package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// maxAppendRetries bounds optimistic-lock retries on concurrent appends.
const maxAppendRetries = 5

// EventStore is a Redis-backed decision log. Each simulation is a list
// whose index i holds sequence i+1.
type EventStore struct {
	client    *redis.Client
	keyPrefix string
	owned     bool
}

// NewEventStore connects to Redis and verifies the connection.
func NewEventStore(cfg Config, opts ...ConfigOption) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(event.ErrConnectionFailed, err)
	}

	return &EventStore{client: client, keyPrefix: cfg.KeyPrefix, owned: true}, nil
}

// NewEventStoreFromClient creates a store from an existing client.
// Close leaves the client open.
func NewEventStoreFromClient(client *redis.Client, keyPrefix string) *EventStore {
	return &EventStore{client: client, keyPrefix: keyPrefix}
}

func (s *EventStore) eventsKey(simulationID string) string {
	return s.keyPrefix + "events:" + simulationID
}

func (s *EventStore) simulationsKey() string {
	return s.keyPrefix + "simulations"
}

// Append persists events atomically. Concurrent appenders to the same
// simulation are serialized with WATCH and retried.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	bySim := make(map[string][]event.Event)
	var order []string
	for _, e := range events {
		if _, ok := bySim[e.SimulationID]; !ok {
			order = append(order, e.SimulationID)
		}
		bySim[e.SimulationID] = append(bySim[e.SimulationID], e)
	}
	keys := make([]string, 0, len(order))
	for _, id := range order {
		keys = append(keys, s.eventsKey(id))
	}

	txf := func(tx *redis.Tx) error {
		encoded := make(map[string][]any, len(order))
		for _, id := range order {
			n, err := tx.LLen(ctx, s.eventsKey(id)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			seq := uint64(n) // #nosec G115 -- list lengths are non-negative
			for _, e := range bySim[id] {
				if e.ID == "" {
					e.ID = uuid.New().String()
				}
				seq++
				e.Sequence = seq
				data, err := json.Marshal(e)
				if err != nil {
					return err
				}
				encoded[id] = append(encoded[id], data)
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range order {
				pipe.RPush(ctx, s.eventsKey(id), encoded[id]...)
				pipe.SAdd(ctx, s.simulationsKey(), id)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("append: %w after %d attempts", redis.TxFailedErr, maxAppendRetries)
}

// LoadEvents retrieves all events for a simulation in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, simulationID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, simulationID, 0)
}

// LoadEventsFrom retrieves events starting from a specific sequence number.
func (s *EventStore) LoadEventsFrom(ctx context.Context, simulationID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := int64(0)
	if fromSeq > 1 {
		start = int64(fromSeq - 1) // #nosec G115 -- sequences fit in int64
	}
	raw, err := s.client.LRange(ctx, s.eventsKey(simulationID), start, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(raw))
	for _, item := range raw {
		var e event.Event
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue // Skip malformed entries
		}
		events = append(events, e)
	}
	return events, nil
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, simulationID string, opts event.QueryOptions) ([]event.Event, error) {
	events, err := s.LoadEvents(ctx, simulationID)
	if err != nil {
		return nil, err
	}
	return event.Filter(events, opts), nil
}

// CountEvents returns the number of events for a simulation.
func (s *EventStore) CountEvents(ctx context.Context, simulationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.client.LLen(ctx, s.eventsKey(simulationID)).Result()
}

// ListSimulations returns all simulation IDs with events, sorted.
func (s *EventStore) ListSimulations(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.simulationsKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the client if the store created it.
func (s *EventStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
