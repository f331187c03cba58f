// Package storage persists finalized event batches in a badger key-value
// store, one compressed record per commit, and answers filtered queries over
// them in commit order.
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// ErrNotFound is returned when no batch exists for a requested commit.
var ErrNotFound = errors.New("storage: batch not found")

// Key layout. Batch records are keyed by an insertion sequence so iteration
// yields commits in analysis order; the hash index maps a commit hash back to
// its sequence key.
const (
	batchPrefix = "batch/"
	hashPrefix  = "hash/"
	counterKey  = "seq"
)

// Config holds storage settings.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// SyncWrites forces an fsync on every commit.
	SyncWrites bool

	// GCInterval is the value-log garbage collection period. Zero disables
	// the collector.
	GCInterval time.Duration

	// GCDiscardRatio is the rewrite threshold passed to badger's collector.
	GCDiscardRatio float64

	// Logger receives badger's internal log output.
	Logger *slog.Logger
}

// DefaultConfig returns production settings rooted at the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     false,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
		Logger:         slog.Default(),
	}
}

// InMemoryConfig returns settings for an ephemeral in-memory store.
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
		Logger:   slog.Default(),
	}
}

// Store is a badger-backed batch archive. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	log    *slog.Logger
	stopGC chan struct{}
	wg     sync.WaitGroup
}

// Open creates or opens a store with the given configuration.
func Open(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{log: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %q: %w", cfg.Path, err)
	}

	store := &Store{
		db:     db,
		log:    cfg.Logger,
		stopGC: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		store.wg.Add(1)

		go store.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return store, nil
}

// Close stops the garbage collector and closes the database.
func (s *Store) Close() error {
	close(s.stopGC)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}

func (s *Store) runGC(interval time.Duration, discardRatio float64) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(discardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Warn("value log gc failed", slog.Any("error", err))
			}
		}
	}
}

// SaveBatch persists a finalized batch keyed by its commit hash. Saving a
// hash that is already stored is a no-op, so re-running an analysis never
// duplicates records.
func (s *Store) SaveBatch(ctx context.Context, batch *event.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if batch.Commit.Hash == "" {
		return errors.New("storage: batch has no commit hash")
	}

	encoded, err := encodeBatch(batch)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		hashKey := []byte(hashPrefix + batch.Commit.Hash)

		_, err := txn.Get(hashKey)
		if err == nil {
			return nil
		}

		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seq, err := nextSequence(txn)
		if err != nil {
			return err
		}

		seqKey := sequenceKey(seq)

		if err := txn.Set(seqKey, encoded); err != nil {
			return err
		}

		return txn.Set(hashKey, seqKey)
	})
	if err != nil {
		return fmt.Errorf("save batch %s: %w", batch.Commit.Hash, err)
	}

	return nil
}

// Batch loads the stored batch for a commit hash. It returns ErrNotFound
// when the commit has not been analyzed.
func (s *Store) Batch(ctx context.Context, hash string) (*event.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var batch *event.Batch

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hashPrefix + hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}

		if err != nil {
			return err
		}

		seqKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		record, err := txn.Get(seqKey)
		if err != nil {
			return err
		}

		raw, err := record.ValueCopy(nil)
		if err != nil {
			return err
		}

		batch, err = decodeBatch(raw)

		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
		}

		return nil, fmt.Errorf("load batch %s: %w", hash, err)
	}

	return batch, nil
}

// Has reports whether a batch is stored for the given commit hash.
func (s *Store) Has(ctx context.Context, hash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(hashPrefix + hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		found = true

		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check batch %s: %w", hash, err)
	}

	return found, nil
}

// Scan streams every stored batch in insertion order. The callback may
// return an error to stop the scan early.
func (s *Store) Scan(ctx context.Context, fn func(*event.Batch) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(batchPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			batch, err := decodeBatch(raw)
			if err != nil {
				return err
			}

			if err := fn(batch); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("scan batches: %w", err)
	}

	return nil
}

func nextSequence(txn *badger.Txn) (uint64, error) {
	var seq uint64

	item, err := txn.Get([]byte(counterKey))

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return 0, err
		}

		seq = binary.BigEndian.Uint64(raw)
	}

	seq++

	counter := make([]byte, 8)
	binary.BigEndian.PutUint64(counter, seq)

	if err := txn.Set([]byte(counterKey), counter); err != nil {
		return 0, err
	}

	return seq, nil
}

// sequenceKey renders a sequence number as a fixed-width hex key so that
// byte order matches numeric order.
func sequenceKey(seq uint64) []byte {
	return fmt.Appendf(nil, "%s%016x", batchPrefix, seq)
}
