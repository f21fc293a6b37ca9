package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"taskloom/internal/core"
	"taskloom/internal/trace"
)

// record is the graph-owned mutable state of one live task.
//
// Records exist from submission until completion; Complete removes them, so
// the tasks map holds exactly the incomplete population. Workers only ever
// see the transient core.Task view returned by ClaimReady.
type record struct {
	id       core.TaskID
	parent   core.TaskID
	tags     []core.Tag
	work     core.Work
	priority int
	flags    core.Flags

	state  core.TaskState
	preds  map[core.TaskID]struct{}
	npreds int // predecessor count at submission, for trace causality
	succs  []core.TaskID
	scopes []core.ScopeID // innermost first
}

// Stats is a point-in-time summary of graph activity.
type Stats struct {
	Submitted   uint64
	Inlined     uint64
	Completed   uint64
	Failed      uint64
	FailedTasks []core.TaskID
}

// Graph is the authoritative store of tasks and scopes; the single source
// of truth for readiness.
//
// Concurrency:
//   - A single coarse mutex guards every mutation; closures run outside it.
//   - One condition variable is broadcast whenever a task becomes ready or
//     completes; idle workers and blocked waiters sleep on it.
//   - Every state transition is linearizable against ClaimReady and
//     Complete. Complete(t) strictly happens-before any promotion of tasks
//     depending on t; Submit happens-before the task's first possible claim.
type Graph struct {
	mu   sync.Mutex
	cond *sync.Cond
	sink trace.Sink

	nextTask  core.TaskID
	nextScope core.ScopeID

	tasks    map[core.TaskID]*record
	children map[core.TaskID]map[core.TaskID]struct{}
	scopes   map[core.ScopeID]*scope
	ready    readyQueue

	// Captured task errors pending their first observing synchronization
	// point. Indexed by failed task id; errsByParent/errsByScope list
	// candidate ids and are filtered lazily against pendingErrs.
	pendingErrs  map[core.TaskID]error
	errsByParent map[core.TaskID][]core.TaskID
	errsByScope  map[core.ScopeID][]core.TaskID

	stats Stats
}

// New creates an empty graph. A nil sink disables tracing.
func New(sink trace.Sink) *Graph {
	if sink == nil {
		sink = trace.NopSink{}
	}
	g := &Graph{
		sink:         sink,
		nextTask:     1,
		nextScope:    1,
		tasks:        make(map[core.TaskID]*record),
		children:     make(map[core.TaskID]map[core.TaskID]struct{}),
		scopes:       make(map[core.ScopeID]*scope),
		pendingErrs:  make(map[core.TaskID]error),
		errsByParent: make(map[core.TaskID][]core.TaskID),
		errsByScope:  make(map[core.ScopeID][]core.TaskID),
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Submit registers a new task and decides its initial state.
//
// The predecessor set is computed once, against the incomplete siblings
// sharing opts.Parent at submission time; it never grows afterwards. With no
// predecessors the task is READY immediately, otherwise BLOCKED.
//
// Fails with ErrInvalidParent if opts.Parent is non-null and not a live
// task. Fails with ErrScopeDraining if the target scope is draining and the
// submitter is not registered in it.
//
// Inline submissions (opts.Inline, or an empty predecessor set under a
// final-flagged parent) execute the closure synchronously on the calling
// goroutine, create no graph entry, and return id None together with the
// closure's error.
func (g *Graph) Submit(ctx context.Context, opts core.SubmitOptions) (core.TaskID, error) {
	if opts.Work == nil {
		return core.None, fmt.Errorf("work closure is required")
	}
	tags, warnings := core.NormalizeTags(opts.Tags)

	g.mu.Lock()

	var parent *record
	if opts.Parent != core.None {
		p, ok := g.tasks[opts.Parent]
		if !ok {
			g.mu.Unlock()
			return core.None, failf(ErrInvalidParent, "task %d", opts.Parent)
		}
		parent = p
	}

	if opts.Inline {
		g.stats.Inlined++
		g.mu.Unlock()
		trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventInlined, Reason: "IfClauseFalse"})
		return core.None, runInline(ctx, opts.Work)
	}

	chain, err := g.registrationChain(opts.Scope, parent)
	if err != nil {
		g.mu.Unlock()
		return core.None, err
	}

	id := g.nextTask
	sibs := g.siblingsLocked(opts.Parent)
	preds := predecessors(tags, sibs)
	for _, p := range preds {
		if p >= id {
			g.mu.Unlock()
			return core.None, failf(ErrCyclicDependency, "predecessor %d is not earlier than task %d", p, id)
		}
	}

	// Final subtree: descendants with no unmet predecessors run undeferred.
	if parent != nil && parent.flags.Final && len(preds) == 0 {
		g.stats.Inlined++
		g.mu.Unlock()
		trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventInlined, Reason: "FinalSubtree"})
		return core.None, runInline(ctx, opts.Work)
	}

	g.nextTask++
	flags := opts.Flags
	if parent != nil && parent.flags.Final {
		flags.Final = true
	}
	rec := &record{
		id:       id,
		parent:   opts.Parent,
		tags:     tags,
		work:     opts.Work,
		priority: opts.Priority,
		flags:    flags,
		state:    core.TaskCreated,
		npreds:   len(preds),
		scopes:   chain,
	}
	g.tasks[id] = rec

	set := g.children[opts.Parent]
	if set == nil {
		set = make(map[core.TaskID]struct{})
		g.children[opts.Parent] = set
	}
	set[id] = struct{}{}

	for _, sid := range chain {
		g.scopes[sid].register(id)
	}

	if len(preds) == 0 {
		if err := transition(rec, core.TaskCreated, core.TaskReady); err != nil {
			g.mu.Unlock()
			return core.None, err
		}
		g.ready.push(rec)
		g.cond.Broadcast()
	} else {
		if err := transition(rec, core.TaskCreated, core.TaskBlocked); err != nil {
			g.mu.Unlock()
			return core.None, err
		}
		rec.preds = make(map[core.TaskID]struct{}, len(preds))
		for _, p := range preds {
			rec.preds[p] = struct{}{}
			pr := g.tasks[p]
			pr.succs = append(pr.succs, id)
		}
	}
	g.stats.Submitted++
	g.mu.Unlock()

	reason := "NoPredecessors"
	if len(preds) > 0 {
		reason = "Blocked"
	}
	trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventSubmitted, TaskID: uint64(id), Reason: reason})
	for _, name := range warnings {
		trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventTagNormalized, TaskID: uint64(id), Reason: name})
	}
	return id, nil
}

func runInline(ctx context.Context, work core.Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return work(ctx)
}

// siblingsLocked returns the resolver view of parent's incomplete children.
func (g *Graph) siblingsLocked(parent core.TaskID) []sibling {
	set := g.children[parent]
	if len(set) == 0 {
		return nil
	}
	sibs := make([]sibling, 0, len(set))
	for id := range set {
		rec := g.tasks[id]
		sibs = append(sibs, sibling{id: rec.id, tags: rec.tags})
	}
	return sibs
}

// ClaimReady atomically selects and removes one ready task, marking it
// RUNNING, and returns its transient view. The second return is false when
// no task is ready.
func (g *Graph) ClaimReady() (core.Task, bool) {
	g.mu.Lock()
	rec := g.ready.pop()
	if rec == nil {
		g.mu.Unlock()
		return core.Task{}, false
	}
	if err := transition(rec, core.TaskReady, core.TaskRunning); err != nil {
		// Queue entries are pushed only on the CREATED/BLOCKED -> READY
		// paths, so this cannot happen; dropping the entry keeps the
		// invariant observable without poisoning the queue.
		g.mu.Unlock()
		return core.Task{}, false
	}
	view := core.Task{
		ID:       rec.id,
		Parent:   rec.parent,
		Tags:     rec.tags,
		Priority: rec.priority,
		Flags:    rec.flags,
		Work:     rec.work,
	}
	g.mu.Unlock()

	trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventClaimed, TaskID: uint64(view.ID)})
	return view, true
}

// Complete marks a task COMPLETED, deregisters it from every ancestor scope,
// and promotes each dependent whose predecessor set drains to empty.
//
// taskErr, if non-nil, is retained and surfaces (joined) at the next
// synchronization point observing this task, then is consumed.
//
// Fails with ErrUnknownTask on a nonexistent or already-completed id; a
// double Complete is a programming error, reported rather than ignored.
func (g *Graph) Complete(id core.TaskID, taskErr error) error {
	g.mu.Lock()
	rec, ok := g.tasks[id]
	if !ok {
		g.mu.Unlock()
		return failf(ErrUnknownTask, "task %d", id)
	}
	if err := transition(rec, core.TaskRunning, core.TaskCompleted); err != nil {
		g.mu.Unlock()
		return err
	}
	delete(g.tasks, id)

	if set := g.children[rec.parent]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(g.children, rec.parent)
		}
	}
	for _, sid := range rec.scopes {
		if s, ok := g.scopes[sid]; ok {
			s.deregister(id)
		}
	}

	if taskErr != nil {
		g.pendingErrs[id] = fmt.Errorf("task %d: %w", id, taskErr)
		g.errsByParent[rec.parent] = append(g.errsByParent[rec.parent], id)
		for _, sid := range rec.scopes {
			g.errsByScope[sid] = append(g.errsByScope[sid], id)
		}
		g.stats.Failed++
		g.stats.FailedTasks = append(g.stats.FailedTasks, id)
	}

	var promoted []trace.Event
	for _, succ := range rec.succs {
		srec, ok := g.tasks[succ]
		if !ok {
			continue
		}
		delete(srec.preds, id)
		if len(srec.preds) == 0 && srec.state == core.TaskBlocked {
			if err := transition(srec, core.TaskBlocked, core.TaskReady); err != nil {
				g.mu.Unlock()
				return err
			}
			g.ready.push(srec)
			ev := trace.Event{Kind: trace.EventPromoted, TaskID: uint64(succ), Reason: "DepsSatisfied"}
			// The completing cause is only deterministic for a sole predecessor.
			if srec.npreds == 1 {
				ev.CauseTaskID = uint64(id)
			}
			promoted = append(promoted, ev)
		}
	}
	g.stats.Completed++
	g.cond.Broadcast()
	g.mu.Unlock()

	reason := ""
	if taskErr != nil {
		reason = "Failed"
	}
	trace.SafeRecord(g.sink, trace.Event{Kind: trace.EventCompleted, TaskID: uint64(id), Reason: reason})
	for _, ev := range promoted {
		trace.SafeRecord(g.sink, ev)
	}
	return nil
}

// HasReady reports whether at least one task is ready to claim.
func (g *Graph) HasReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready.Len() > 0
}

// AwaitWork blocks the caller until a task is ready or stop reports true.
// stop is evaluated under the graph mutex; Wake forces re-evaluation.
func (g *Graph) AwaitWork(stop func() bool) {
	g.mu.Lock()
	for g.ready.Len() == 0 && !stop() {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// Wake broadcasts to every goroutine blocked in AwaitWork or a graph wait.
func (g *Graph) Wake() {
	g.mu.Lock()
	g.cond.Broadcast()
	g.mu.Unlock()
}

// waitOn blocks until pred holds, then returns collect's result, all under
// the graph mutex. While blocked the caller prefers executing other ready
// tasks through help (a task scheduling point); only when help finds
// nothing and no task is ready does it sleep on the condition variable.
func (g *Graph) waitOn(pred func() bool, help func() bool, collect func() error) error {
	g.mu.Lock()
	for !pred() {
		if help == nil {
			g.cond.Wait()
			continue
		}
		g.mu.Unlock()
		ran := help()
		g.mu.Lock()
		if ran || pred() || g.ready.Len() > 0 {
			continue
		}
		g.cond.Wait()
	}
	err := collect()
	g.mu.Unlock()
	return err
}

// WaitChildren blocks until every task whose parent is exactly parent has
// completed. Grandchildren are irrelevant to this contract. Returns the
// joined errors of the observed children and consumes them.
//
// This is the taskwait primitive: the incomplete-children index acts as a
// transient scope registering only direct children.
func (g *Graph) WaitChildren(parent core.TaskID, help func() bool) error {
	return g.waitOn(
		func() bool { return len(g.children[parent]) == 0 },
		help,
		func() error { return g.collectParentErrsLocked(parent) },
	)
}

func (g *Graph) collectParentErrsLocked(parent core.TaskID) error {
	ids := g.errsByParent[parent]
	if len(ids) == 0 {
		return nil
	}
	delete(g.errsByParent, parent)
	return g.takeErrsLocked(ids)
}

// takeErrsLocked consumes the still-pending errors among ids and joins them
// in ascending task-id order.
func (g *Graph) takeErrsLocked(ids []core.TaskID) error {
	var errs []error
	sorted := make([]core.TaskID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, id := range sorted {
		if err, ok := g.pendingErrs[id]; ok {
			errs = append(errs, err)
			delete(g.pendingErrs, id)
		}
	}
	return errors.Join(errs...)
}

// Stats returns a copy of the activity counters.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.stats
	out.FailedTasks = make([]core.TaskID, len(g.stats.FailedTasks))
	copy(out.FailedTasks, g.stats.FailedTasks)
	return out
}
