package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParent reports a submit referencing a parent that does not
	// exist (or has already completed).
	ErrInvalidParent = errors.New("invalid parent task")

	// ErrUnknownTask reports an operation on a nonexistent or
	// already-completed task id. A second Complete on the same id is a
	// programming error and lands here, never a silent no-op.
	ErrUnknownTask = errors.New("unknown or already-completed task")

	// ErrUnknownScope reports an operation on a scope id that was never
	// opened or has been removed.
	ErrUnknownScope = errors.New("unknown scope")

	// ErrCyclicDependency reports a resolver invariant violation.
	// Predecessors are always earlier-created siblings, so a cycle is
	// structurally impossible; observing one is fatal, not recoverable.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrScopeNotDrained reports an attempt to remove a scope whose
	// incomplete-descendant set is not empty.
	ErrScopeNotDrained = errors.New("scope not drained")

	// ErrScopeDraining reports a late submission into a draining scope by
	// a submitter not registered in that scope.
	ErrScopeDraining = errors.New("scope is draining")
)

// RuntimeError wraps structural runtime failures. These indicate programmer
// error, not transient conditions, and are never retried.
type RuntimeError struct {
	Kind error
	Msg  string
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Kind }

func failf(kind error, format string, args ...any) error {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
