package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

var (
	bucketMutations = []byte(mutation.QueueStore)
	bucketIndex     = []byte("mutation_index")
	bucketQueries   = []byte(mutation.CacheStore)
)

// boltLockTimeout bounds how long OpenBolt waits for another process to
// release the file lock.
var boltLockTimeout = time.Second

// Bolt is a Backend stored in a single bbolt file.
//
// Mutations are keyed by an 8-byte big-endian sequence from NextSequence, so
// a cursor walk yields insertion order. mutation_index maps id to that key.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path.
// bbolt holds an exclusive file lock while open; if another handle has it,
// OpenBolt fails with bolt.ErrTimeout after boltLockTimeout.
func OpenBolt(path string) (*Bolt, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltLockTimeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMutations, bucketIndex, bucketQueries} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Bolt{db: db}, nil
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (s *Bolt) Add(ctx context.Context, m mutation.QueuedMutation) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("add mutation: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketIndex)
		if index.Get([]byte(m.ID)) != nil {
			return fmt.Errorf("add mutation %s: %w", m.ID, ErrDuplicateID)
		}
		records := tx.Bucket(bucketMutations)
		seq, err := records.NextSequence()
		if err != nil {
			return fmt.Errorf("add mutation: next sequence: %w", err)
		}
		key := seqKey(seq)
		if err := records.Put(key, data); err != nil {
			return fmt.Errorf("add mutation: %w", err)
		}
		return index.Put([]byte(m.ID), key)
	})
}

func (s *Bolt) ListAll(ctx context.Context) ([]mutation.QueuedMutation, error) {
	out := []mutation.QueuedMutation{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMutations).ForEach(func(k, v []byte) error {
			var m mutation.QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("decode mutation at seq %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if m.Headers == nil {
				m.Headers = map[string]string{}
			}
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Bolt) DeleteByID(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(bucketIndex)
		key := index.Get([]byte(id))
		if key == nil {
			return nil
		}
		// key is only valid for the life of the transaction
		key = append([]byte(nil), key...)
		if err := tx.Bucket(bucketMutations).Delete(key); err != nil {
			return fmt.Errorf("delete mutation %s: %w", id, err)
		}
		return index.Delete([]byte(id))
	})
}

func (s *Bolt) ClearAll(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketMutations, bucketIndex} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("clear mutations: %w", err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("clear mutations: %w", err)
			}
		}
		return nil
	})
}

func (s *Bolt) PutSnapshot(ctx context.Context, key string, snap mutation.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueries).Put([]byte(key), data)
	})
}

func (s *Bolt) GetSnapshot(ctx context.Context, key string) (mutation.Snapshot, bool, error) {
	var (
		snap  mutation.Snapshot
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketQueries).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return mutation.Snapshot{}, false, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	return snap, found, nil
}

func (s *Bolt) DeleteSnapshot(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketQueries).Delete([]byte(key))
	})
}

// Close closes the underlying bbolt database.
func (s *Bolt) Close() error {
	return s.db.Close()
}
