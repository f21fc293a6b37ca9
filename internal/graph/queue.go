package graph

import "container/heap"

// readyQueue orders ready records by priority (descending), with submission
// order (ascending id) as the tie-break. With a single consumer this makes
// claim order fully deterministic for a fixed submission sequence; under
// concurrent consumers only the set of possible interleavings is fixed.
type readyQueue []*record

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].id < q[j].id
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(*record)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return x
}

// push enqueues a ready record. Must be called with the graph mutex held.
func (q *readyQueue) push(rec *record) {
	heap.Push(q, rec)
}

// pop removes the highest-priority ready record, or nil if empty.
// Must be called with the graph mutex held.
func (q *readyQueue) pop() *record {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*record)
}
