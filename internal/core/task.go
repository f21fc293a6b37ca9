package core

import "context"

// TaskID is the unique identity of a submitted task.
//
// IDs are assigned from a monotonic counter starting at 1; the zero value
// means "no task" and is used for the nullable parent of root tasks.
type TaskID uint64

// None is the null TaskID (no parent).
const None TaskID = 0

// ScopeID is the unique identity of a taskgroup scope. Zero means
// "no explicit scope".
type ScopeID uint64

// Work is the closure a task defers. It receives the executing worker's
// context and reports failure through the returned error.
//
// A Work closure may submit further tasks (the nested-task path); it must
// not call back into blocking waits on its own subtree unless it is prepared
// to cooperatively execute other ready tasks while waiting.
type Work func(ctx context.Context) error

// Flags carries the optional scheduling hints declared at submission.
//
// Final and Mergeable are recorded hints; the runtime may use them to skip
// deferred scheduling but is not required to.
type Flags struct {
	// Final hints that descendants of this task need not be deferred.
	Final bool

	// Mergeable hints that the task's environment may be shared with its
	// submitter when executed inline.
	Mergeable bool
}

// SubmitOptions is everything a submitter states about a new task.
type SubmitOptions struct {
	// Parent is the submitting task, or None for a root task.
	Parent TaskID

	// Scope is the taskgroup scope the task registers under. Zero means
	// "inherit the parent's scope, if any".
	Scope ScopeID

	// Tags are the declared data effects used to derive predecessors
	// against earlier incomplete siblings.
	Tags []Tag

	// Priority orders ready tasks: higher runs first, submission order
	// breaks ties. Default 0.
	Priority int

	Flags Flags

	// Inline requests synchronous execution on the calling thread with no
	// graph entry (the included-task path; mirrors a false if-clause).
	Inline bool

	// Work is the deferred closure. Required.
	Work Work
}

// Task is the read-only view of a claimed task handed to a worker.
//
// The graph retains exclusive ownership of the underlying record; a Task
// value is a transient copy valid for the duration of one execution.
type Task struct {
	ID       TaskID
	Parent   TaskID
	Tags     []Tag
	Priority int
	Flags    Flags
	Work     Work
}
