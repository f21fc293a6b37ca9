package pool

import (
	"context"

	"taskloom/internal/core"
)

type workerIDKey struct{}
type taskIDKey struct{}

func withWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}

// WorkerID reports the executing worker's index from a task context. This
// is the explicit analog of thread-private storage: state a closure wants
// to key per worker is keyed by this id, never by hidden globals.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerIDKey{}).(int)
	return id, ok
}

func withTaskID(ctx context.Context, id core.TaskID) context.Context {
	return context.WithValue(ctx, taskIDKey{}, id)
}

// TaskID reports the id of the task executing under ctx. Closures use it as
// the parent for nested submissions and for taskwait on their own children.
func TaskID(ctx context.Context) (core.TaskID, bool) {
	id, ok := ctx.Value(taskIDKey{}).(core.TaskID)
	return id, ok
}
