package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/felixgeelhaar/agentsim/domain/event"
	"github.com/google/uuid"
)

// EventStore is a SQLite-backed decision log.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite event store with the given configuration.
func NewEventStore(cfg Config) (*EventStore, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &EventStore{db: db}
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewEventStoreFromDB creates an event store from an existing database connection.
func NewEventStoreFromDB(db *sql.DB) (*EventStore, error) {
	s := &EventStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EventStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS decision_events (
			id TEXT PRIMARY KEY,
			simulation_id TEXT NOT NULL,
			type TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_decision_events_type ON decision_events(simulation_id, type);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_decision_events_sim_seq ON decision_events(simulation_id, sequence);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}
	return nil
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decision_events (id, simulation_id, type, sequence, timestamp, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	sequences := make(map[string]uint64)
	for _, e := range events {
		seq, ok := sequences[e.SimulationID]
		if !ok {
			var maxSeq sql.NullInt64
			err := tx.QueryRowContext(ctx,
				"SELECT MAX(sequence) FROM decision_events WHERE simulation_id = ?",
				e.SimulationID,
			).Scan(&maxSeq)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if maxSeq.Valid {
				seq = uint64(maxSeq.Int64) // #nosec G115 -- sequences are positive
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
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.SimulationID, string(e.Type), e.Sequence, e.Timestamp.UnixNano(), data,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
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
	return s.scan(ctx,
		"SELECT data FROM decision_events WHERE simulation_id = ? AND sequence >= ? ORDER BY sequence",
		simulationID, fromSeq,
	)
}

// Query retrieves events matching the given options.
func (s *EventStore) Query(ctx context.Context, simulationID string, opts event.QueryOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := "SELECT data FROM decision_events WHERE simulation_id = ?"
	args := []any{simulationID}

	if len(opts.Types) > 0 {
		placeholders := make([]string, len(opts.Types))
		for i, t := range opts.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += " AND type IN (" + strings.Join(placeholders, ", ") + ")"
	}

	query += " ORDER BY sequence"

	// SQLite requires LIMIT when using OFFSET
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return s.scan(ctx, query, args...)
}

func (s *EventStore) scan(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []event.Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var e event.Event
		if err := json.Unmarshal(data, &e); err != nil {
			continue // Skip malformed entries
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of events for a simulation.
func (s *EventStore) CountEvents(ctx context.Context, simulationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM decision_events WHERE simulation_id = ?",
		simulationID,
	).Scan(&count)
	return count, err
}

// ListSimulations returns all simulation IDs with events, sorted.
func (s *EventStore) ListSimulations(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT simulation_id FROM decision_events ORDER BY simulation_id",
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}

var (
	_ event.Store   = (*EventStore)(nil)
	_ event.Querier = (*EventStore)(nil)
)
