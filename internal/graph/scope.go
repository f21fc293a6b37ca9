package graph

import "taskloom/internal/core"

// scope tracks one taskgroup or region scope.
//
// Scope lifecycle: Open -> Draining (first blocking wait arrives; fresh
// submissions are only accepted from tasks already registered) -> Closed
// (incomplete set empty) -> Removed.
type scope struct {
	id     core.ScopeID
	parent core.ScopeID

	// chain is this scope followed by all its ancestors, innermost first.
	// Fixed at open time; task registration walks it so ancestor waits see
	// every descendant generation.
	chain []core.ScopeID

	incomplete map[core.TaskID]struct{}
	members    map[core.TaskID]struct{}
	draining   bool
}

func (s *scope) register(id core.TaskID) {
	s.incomplete[id] = struct{}{}
	s.members[id] = struct{}{}
}

func (s *scope) deregister(id core.TaskID) {
	delete(s.incomplete, id)
}

// OpenScope creates a scope under parent (zero for a root-level scope).
// Fails with ErrUnknownScope if parent is non-zero and not open.
func (g *Graph) OpenScope(parent core.ScopeID) (core.ScopeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var chain []core.ScopeID
	if parent != 0 {
		ps, ok := g.scopes[parent]
		if !ok {
			return 0, failf(ErrUnknownScope, "parent scope %d", parent)
		}
		chain = ps.chain
	}

	id := g.nextScope
	g.nextScope++
	s := &scope{
		id:         id,
		parent:     parent,
		chain:      append([]core.ScopeID{id}, chain...),
		incomplete: make(map[core.TaskID]struct{}),
		members:    make(map[core.TaskID]struct{}),
	}
	g.scopes[id] = s
	return id, nil
}

// registrationChain resolves the scope chain a new task registers under.
//
// An explicit scope must be open; with no explicit scope the task inherits
// its parent's chain, so descendants of a scoped task stay visible to the
// scope across every generation. Submissions into a draining scope are
// rejected unless the submitter is already registered in it (a running task
// may still spawn children before its own completion).
func (g *Graph) registrationChain(explicit core.ScopeID, parent *record) ([]core.ScopeID, error) {
	var chain []core.ScopeID
	switch {
	case explicit != 0:
		s, ok := g.scopes[explicit]
		if !ok {
			return nil, failf(ErrUnknownScope, "scope %d", explicit)
		}
		chain = s.chain
	case parent != nil:
		chain = parent.scopes
	}

	for _, sid := range chain {
		s, ok := g.scopes[sid]
		if !ok {
			continue
		}
		if !s.draining {
			continue
		}
		if parent == nil {
			return nil, failf(ErrScopeDraining, "scope %d", sid)
		}
		if _, member := s.members[parent.id]; !member {
			return nil, failf(ErrScopeDraining, "scope %d: submitter %d is not registered", sid, parent.id)
		}
	}

	out := make([]core.ScopeID, len(chain))
	copy(out, chain)
	return out, nil
}

// CloseScopeBlocking suspends the caller until the scope's incomplete
// descendant set (all generations) is empty, then removes the scope. This
// is the taskgroup-wait and barrier primitive.
//
// Entering the wait moves the scope to Draining. Multiple goroutines may
// wait on the same scope; all of them are released together once the set
// drains, no waiter observes a partial release, and the first to collect
// consumes the descendants' captured errors.
//
// While suspended the caller executes other ready tasks through help
// rather than idling, so waits nested deeper than the worker count cannot
// deadlock the pool.
//
// Closing a scope that was already removed is a no-op: a barrier
// participant may arrive after the region drained and must still be
// released. Only a scope id that was never opened is an error.
func (g *Graph) CloseScopeBlocking(sid core.ScopeID, help func() bool) error {
	g.mu.Lock()
	s, ok := g.scopes[sid]
	if !ok {
		known := sid != 0 && sid < g.nextScope
		g.mu.Unlock()
		if known {
			return nil
		}
		return failf(ErrUnknownScope, "scope %d", sid)
	}
	s.draining = true
	g.mu.Unlock()

	return g.waitOn(
		func() bool { return len(s.incomplete) == 0 },
		help,
		func() error {
			delete(g.scopes, sid)
			return g.collectScopeErrsLocked(sid)
		},
	)
}

// RemoveScope removes a scope without blocking. Fails with
// ErrScopeNotDrained while the incomplete set is non-empty. Captured
// descendant errors are left pending for the tasks' parent waits.
func (g *Graph) RemoveScope(sid core.ScopeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.scopes[sid]
	if !ok {
		return failf(ErrUnknownScope, "scope %d", sid)
	}
	if len(s.incomplete) > 0 {
		return failf(ErrScopeNotDrained, "scope %d: %d incomplete tasks", sid, len(s.incomplete))
	}
	delete(g.scopes, sid)
	delete(g.errsByScope, sid)
	return nil
}

func (g *Graph) collectScopeErrsLocked(sid core.ScopeID) error {
	ids := g.errsByScope[sid]
	if len(ids) == 0 {
		return nil
	}
	delete(g.errsByScope, sid)
	return g.takeErrsLocked(ids)
}
