package core

// TaskState is the runtime execution state of a task.
//
// This is intentionally separated from the Task view, which is immutable;
// only the graph engine transitions state.
//
// Lifecycle:
//
//	CREATED -> READY | BLOCKED -> RUNNING -> COMPLETED
type TaskState string

const (
	TaskCreated   TaskState = "CREATED"
	TaskBlocked   TaskState = "BLOCKED"
	TaskReady     TaskState = "READY"
	TaskRunning   TaskState = "RUNNING"
	TaskCompleted TaskState = "COMPLETED"
)

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s TaskState) bool {
	return s == TaskCompleted
}
