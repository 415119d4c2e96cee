// Package queue is the durable offline mutation queue.
//
// Writes that could not reach the server are handed to Enqueue, stored in a
// store.Backend, and later drained by the replay engine. The queue is a
// best-effort durability layer: when storage is unavailable (blocked file,
// full disk, backend not yet initialised) every public operation degrades to
// a no-op or an empty list instead of failing the caller's write flow.
//
// Degradation is explicit rather than silent. Enqueue, Pending and Clear
// return a Result whose Err field carries the absorbed *StorageError, and
// the failure is logged, but callers that only care about the happy path can
// ignore it.
package queue
