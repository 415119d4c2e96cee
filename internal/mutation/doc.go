// Package mutation defines the records shared by the offline mutation queue,
// its replay engine and the query-cache persister.
//
// A QueuedMutation is one deferred write: the exact HTTP request that could
// not be delivered, plus a generated ID and creation timestamp. Records are
// opaque to the queue; it never inspects URL, headers or body beyond
// replaying them verbatim.
//
// A Snapshot is the single persisted copy of a read cache for one key.
package mutation
