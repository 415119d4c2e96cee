package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/RudyLabor/squadplanner-sub013/internal/mutation"
)

var (
	// ErrDuplicateID is returned by Add when a record with the same id exists.
	ErrDuplicateID = errors.New("store: duplicate mutation id")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("store: closed")

	// ErrInvalidDSN is returned when a DSN names no usable location.
	ErrInvalidDSN = errors.New("store: invalid dsn")
)

// MutationStore holds queued mutations.
type MutationStore interface {
	// Add persists m. Fails with ErrDuplicateID if m.ID is already stored.
	Add(ctx context.Context, m mutation.QueuedMutation) error

	// ListAll returns every stored record in insertion order.
	// Returns an empty (non-nil) slice when the store is empty.
	ListAll(ctx context.Context) ([]mutation.QueuedMutation, error)

	// DeleteByID removes one record. Deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error

	// ClearAll removes every record.
	ClearAll(ctx context.Context) error
}

// SnapshotStore holds one query-cache snapshot per key.
type SnapshotStore interface {
	// PutSnapshot overwrites the snapshot stored under key.
	PutSnapshot(ctx context.Context, key string, s mutation.Snapshot) error

	// GetSnapshot returns the snapshot under key and whether one was found.
	GetSnapshot(ctx context.Context, key string) (mutation.Snapshot, bool, error)

	// DeleteSnapshot removes the snapshot under key. Missing keys are not an error.
	DeleteSnapshot(ctx context.Context, key string) error
}

// Backend is a durable store holding both collections.
type Backend interface {
	MutationStore
	SnapshotStore
	Close() error
}

// Open creates a backend from a DSN.
//
// Supported forms:
//
//	sqlite:///var/lib/sqsync/queue.db
//	/var/lib/sqsync/queue.db          (no scheme: sqlite)
//	bolt:///var/lib/sqsync/queue.bolt
//	memory://
func Open(dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, ErrInvalidDSN
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	scheme := strings.ToLower(strings.TrimSpace(parsed.Scheme))
	switch scheme {
	case "", "sqlite", "sqlite3", "file":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	case "bolt", "bbolt":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return OpenBolt(path)
	case "memory", "mem", "inmem":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if strings.TrimSpace(parsed.Scheme) == "" {
		return strings.TrimSpace(raw), nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if parsed.Host != "" {
		// sqlite://relative/dir/queue.db puts the first segment in Host.
		path = parsed.Host + path
	}
	if path == "" {
		return "", ErrInvalidDSN
	}
	return path, nil
}
