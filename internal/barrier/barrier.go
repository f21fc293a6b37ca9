// Package barrier implements the runtime's blocking synchronization on top
// of the graph's scope mechanism: taskwait (direct children only),
// taskgroup wait (all descendant generations), and region barriers.
//
// Every wait is a task scheduling point: the suspended goroutine prefers
// executing other ready tasks over idling, so waits nested deeper than the
// physical worker count cannot deadlock the pool.
package barrier

import (
	"taskloom/internal/core"
	"taskloom/internal/graph"
)

// Waiter binds wait semantics to one graph.
//
// Help is the scheduling-point callback (run one ready task if available,
// report whether one ran); typically pool.Helper. A nil Help degrades every
// wait to pure blocking, which is only safe for threads outside the pool.
type Waiter struct {
	Graph *graph.Graph
	Help  func() bool
}

// New builds a Waiter over g using help as its scheduling point.
func New(g *graph.Graph, help func() bool) *Waiter {
	return &Waiter{Graph: g, Help: help}
}

// Taskwait blocks until every task whose parent is exactly task has
// completed. It does not wait on grandchildren: a child that completed
// while its own children still run satisfies this wait.
//
// Returns the joined errors captured from the observed children, consuming
// them; a second Taskwait over the same, unchanged set returns nil.
func (w *Waiter) Taskwait(task core.TaskID) error {
	return w.Graph.WaitChildren(task, w.Help)
}

// TaskgroupWait blocks until the scope's incomplete-descendant set (every
// generation registered under it) is empty, then removes the scope.
func (w *Waiter) TaskgroupWait(scope core.ScopeID) error {
	return w.Graph.CloseScopeBlocking(scope, w.Help)
}

// Barrier drains a region: it blocks until every task bound to the region's
// root scope, directly or transitively, has completed. All goroutines
// waiting on the same region are released together; none observes a
// partial release, because release requires the scope's incomplete set to
// be empty and draining scopes reject fresh outside submissions.
func (w *Waiter) Barrier(region core.ScopeID) error {
	return w.Graph.CloseScopeBlocking(region, w.Help)
}
