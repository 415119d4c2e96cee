// Package trigger decides when the replay engine runs.
//
// Two platform capabilities drive it, both optional:
//
//   - Window: a source of "online" notifications. Init subscribes a replay
//     pass to it. Without a Window (headless or render-only processes) Init is a
//     no-op and returns an inactive Handle; it never fails.
//   - SyncCapability: a background-sync facility that can run a task later,
//     even if the code that queued the work has gone away. Lookup returns a
//     tagged Availability rather than a nil-able handle, so callers never
//     feature-sniff.
//
// BackgroundSync is the in-process implementation of SyncCapability.
package trigger
