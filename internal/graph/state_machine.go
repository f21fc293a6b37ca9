package graph

import (
	"fmt"

	"taskloom/internal/core"
)

// transition performs a validated state change on a single record.
//
// The caller supplies the expected prior state (from) to make races
// observable. The record is mutated if and only if the transition is valid.
// Must be called with the graph mutex held.
func transition(rec *record, from, to core.TaskState) error {
	if rec == nil {
		return fmt.Errorf("nil task record")
	}
	if rec.state != from {
		return fmt.Errorf("invalid transition for task %d: expected %s, got %s", rec.id, from, rec.state)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for task %d: %s -> %s", rec.id, from, to)
	}
	rec.state = to
	return nil
}

func isAllowedTransition(from, to core.TaskState) bool {
	switch from {
	case core.TaskCreated:
		return to == core.TaskReady || to == core.TaskBlocked
	case core.TaskBlocked:
		return to == core.TaskReady
	case core.TaskReady:
		return to == core.TaskRunning
	case core.TaskRunning:
		return to == core.TaskCompleted
	default:
		return false
	}
}
