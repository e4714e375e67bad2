// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/raulk/clock"
)

// Record is a durable value together with the time it was written
type Record struct {
	Value     []byte    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// KV is the durable key-value store backing the result caches
type KV interface {
	Get(key string) (Record, bool, error)
	Set(key string, value []byte) error
}

// BadgerStore provides prefixed record storage on top of badger
type BadgerStore struct {
	db     *badger.DB
	prefix string
	codec  *codec
	clock  clock.Clock
}

// Options configures a BadgerStore
type Options struct {
	Prefix      string
	Compression CompressionOptions
	Clock       clock.Clock
}

func NewBadgerStore(db *badger.DB, opts Options) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if opts.Prefix == "" {
		return nil, fmt.Errorf("prefix cannot be empty")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	c, err := newCodec(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating codec: %w", err)
	}

	return &BadgerStore{
		db:     db,
		prefix: opts.Prefix,
		codec:  c,
		clock:  opts.Clock,
	}, nil
}

// Open opens a badger database at path. An empty path opens an in-memory
// database, which is what tests and --no-cache runs use.
func Open(path string) (*badger.DB, error) {
	if path == "" {
		opts := badger.DefaultOptions("").
			WithInMemory(true).
			WithNumVersionsToKeep(1).
			WithLogger(nil)
		return badger.Open(opts)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func (s *BadgerStore) makeKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, key))
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

// Get returns the record stored under key. A missing key is not an error.
func (s *BadgerStore) Get(key string) (Record, bool, error) {
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data, err := s.codec.decode(val)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, &rec)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("reading record %s: %w", key, err)
	}
	return rec, true, nil
}

// Set stores value under key stamped with the current time
func (s *BadgerStore) Set(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	data, err := json.Marshal(Record{Value: value, Timestamp: s.clock.Now()})
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(key), s.codec.encode(data))
	})
}

func (s *BadgerStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.makeKey(key))
	})
}

// Keys lists every key under the store prefix
func (s *BadgerStore) Keys() ([]string, error) {
	var keys []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(s.prefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, s.stripPrefix(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	return keys, nil
}

// Clear removes every record under the store prefix and returns how many
// were deleted.
func (s *BadgerStore) Clear() (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(s.makeKey(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clearing %s: %w", s.prefix, err)
	}
	return len(keys), nil
}
