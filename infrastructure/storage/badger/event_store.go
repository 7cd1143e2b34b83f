package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/google/uuid"
)

// EventStore is a BadgerDB-backed decision log.
type EventStore struct {
	db        *badger.DB
	keyPrefix string
	owned     bool
}

// NewEventStore opens a database and returns a store owning it.
func NewEventStore(cfg Config, opts ...Option) (*EventStore, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &EventStore{db: db, keyPrefix: cfg.KeyPrefix, owned: true}, nil
}

// NewEventStoreFromDB creates an event store on an existing database.
// Close leaves the database open.
func NewEventStoreFromDB(db *badger.DB, keyPrefix string) *EventStore {
	return &EventStore{db: db, keyPrefix: keyPrefix}
}

// Key format: prefix events:simulationID:sequence (8 bytes, big-endian)
func (s *EventStore) eventKey(simulationID string, seq uint64) []byte {
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seq)
	return append([]byte(s.eventPrefix(simulationID)), seqBytes...)
}

func (s *EventStore) eventPrefix(simulationID string) string {
	return s.keyPrefix + "events:" + simulationID + ":"
}

// Key format: prefix seq:simulationID
func (s *EventStore) seqKey(simulationID string) []byte {
	return []byte(s.keyPrefix + "seq:" + simulationID)
}

// Append persists one or more events in a single transaction.
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

	return s.db.Update(func(txn *badger.Txn) error {
		sequences := make(map[string]uint64)
		for _, e := range events {
			seq, ok := sequences[e.SimulationID]
			if !ok {
				var err error
				seq, err = s.readSeq(txn, e.SimulationID)
				if err != nil {
					return err
				}
			}

			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			seq++
			e.Sequence = seq
			sequences[e.SimulationID] = seq

			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := txn.Set(s.eventKey(e.SimulationID, seq), data); err != nil {
				return err
			}
		}

		for simID, seq := range sequences {
			seqBytes := make([]byte, 8)
			binary.BigEndian.PutUint64(seqBytes, seq)
			if err := txn.Set(s.seqKey(simID), seqBytes); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *EventStore) readSeq(txn *badger.Txn, simulationID string) (uint64, error) {
	item, err := txn.Get(s.seqKey(simulationID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) == 8 {
			seq = binary.BigEndian.Uint64(val)
		}
		return nil
	})
	return seq, err
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

	prefix := []byte(s.eventPrefix(simulationID))
	startKey := s.eventKey(simulationID, fromSeq)
	var events []event.Event

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(startKey); it.Valid(); it.Next() {
			var e event.Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				continue // Skip malformed entries
			}
			events = append(events, e)
		}
		return nil
	})
	return events, err
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

	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.eventPrefix(simulationID))

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListSimulations returns the IDs of simulations with events, sorted.
func (s *EventStore) ListSimulations(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := s.keyPrefix + "seq:"
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefix))
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

// DB returns the underlying database so other stores can share it.
func (s *EventStore) DB() *badger.DB {
	return s.db
}

// Close closes the database if the store opened it.
func (s *EventStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
