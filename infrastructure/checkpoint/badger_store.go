package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/felixgeelhaar/agentsim/domain/checkpoint"
)

const badgerKeyPrefix = "checkpoint:"

// BadgerStore keeps checkpoints in a BadgerDB database, one key per round.
// Each Save is a single transaction, so it is atomic.
type BadgerStore struct {
	db     *badger.DB
	prefix string
	owned  bool
}

// BadgerConfig configures the badger checkpoint store.
type BadgerConfig struct {
	// Dir is the data directory. Empty runs in memory.
	Dir string

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// KeyPrefix is added to all keys.
	KeyPrefix string
}

// NewBadgerStore opens a database and returns a store owning it.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Dir).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}
	return &BadgerStore{db: db, prefix: cfg.KeyPrefix, owned: true}, nil
}

// NewBadgerStoreFromDB shares an existing database. Close leaves it open.
func NewBadgerStoreFromDB(db *badger.DB, keyPrefix string) *BadgerStore {
	return &BadgerStore{db: db, prefix: keyPrefix}
}

func (s *BadgerStore) key(round int) string {
	return fmt.Sprintf("%s%s%08d", s.prefix, badgerKeyPrefix, round)
}

// Save implements checkpoint.Store. The reference is the key.
func (s *BadgerStore) Save(ctx context.Context, c *checkpoint.Checkpoint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := checkpoint.Encode(c)
	if err != nil {
		return "", err
	}
	key := s.key(c.RoundNumber)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	}); err != nil {
		return "", fmt.Errorf("store checkpoint: %w", err)
	}
	return key, nil
}

// Load implements checkpoint.Store.
func (s *BadgerStore) Load(ctx context.Context, ref string) (*checkpoint.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", checkpoint.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return checkpoint.Decode(data)
}

// ForRound implements checkpoint.Store.
func (s *BadgerStore) ForRound(ctx context.Context, round int) (*checkpoint.Checkpoint, error) {
	return s.Load(ctx, s.key(round))
}

// List implements checkpoint.Store. Badger iterates keys in byte order,
// which the zero-padded round makes numeric order.
func (s *BadgerStore) List(ctx context.Context) ([]checkpoint.Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(s.prefix + badgerKeyPrefix)
	var infos []checkpoint.Info

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().KeyCopy(nil))
			round, err := strconv.Atoi(strings.TrimPrefix(key, string(prefix)))
			if err != nil {
				continue
			}
			infos = append(infos, checkpoint.Info{Ref: key, RoundNumber: round})
		}
		return nil
	})
	return infos, err
}

// Latest implements checkpoint.Store.
func (s *BadgerStore) Latest(ctx context.Context) (*checkpoint.Checkpoint, error) {
	return latest(ctx, s)
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
