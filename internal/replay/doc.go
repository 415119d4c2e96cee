// Package replay drains the offline mutation queue.
//
// A pass takes a snapshot of the queue, then sends each record strictly in
// FIFO order, one at a time, and classifies the outcome:
//
//	2xx              delivered: deleted and counted
//	4xx              rejected:  deleted, not counted (retrying cannot fix it)
//	5xx (and other)  retry:     left in the queue for the next pass
//	transport error  halt:      the pass stops; this record and every later
//	                            one stay queued and untried
//
// # Ordering
//
// The pass never skips past a record it could not send. Later records may
// depend on earlier ones (create, then update the same resource), so
// replaying them out of order is worse than waiting for the next trigger.
// A record that cannot even be turned into a request (corrupt URL or method)
// is treated the same way as a transport error.
//
// Records queued while a pass runs are not part of its snapshot; they are
// picked up by the next pass. Passes on one Engine never overlap.
package replay
