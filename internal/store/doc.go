// Package store provides the durable backends behind the offline mutation
// queue and the query-cache persister.
//
// Every backend holds two independent collections:
//   - Mutations: QueuedMutation records keyed by id, enumerated in insertion
//     (FIFO) order
//   - Snapshots: at most one mutation.Snapshot per persister key
//
// # Ordering
//
// ListAll returns records in the order they were added. Ordering comes from a
// storage sequence (SQLite AUTOINCREMENT rowid, bbolt NextSequence, slice
// position), NEVER from the record timestamp, which is wall-clock and may go
// backwards.
//
// # Atomicity
//
// A record is written by a single statement or transaction. Backends never
// leave a partially written record behind; a failed Add leaves the store as
// it was.
//
// # Backends
//
//   - sqlite:// (default): mattn/go-sqlite3, WAL mode, synchronous=NORMAL
//   - bolt://: go.etcd.io/bbolt, one bucket per collection
//   - memory://: process-local, for tests and throwaway sessions
package store
