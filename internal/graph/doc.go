// Package graph implements the authoritative store for the task runtime.
//
// It is intentionally split into:
//   - Task records: mutable scheduling state, owned exclusively by the Graph
//   - The resolver: a pure function deriving predecessor sets from declared
//     data-effect tags against earlier incomplete siblings
//   - Scopes: bookkeeping trees for bulk synchronization (taskgroup, barrier)
//
// All mutable state sits behind a single coarse mutex; tasks are expected to
// be coarser-grained than lock hold time. Closures always execute outside
// the lock. A single condition variable, broadcast on every promotion and
// completion, wakes idle workers and blocked waiters.
package graph
