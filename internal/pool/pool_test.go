package pool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskloom/internal/core"
	"taskloom/internal/graph"
)

func TestPool_AllIndependentTasksComplete(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{Workers: 8})

	ctx := context.Background()
	var ran atomic.Int64
	const n = 100
	for i := 0; i < n; i++ {
		_, err := g.Submit(ctx, core.SubmitOptions{Work: func(context.Context) error {
			ran.Add(1)
			return nil
		}})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	p.Start(ctx)
	if err := g.WaitChildren(core.None, nil); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if ran.Load() != n {
		t.Fatalf("expected %d tasks to run, got %d", n, ran.Load())
	}
}

func TestPool_NestedSubmissionSingleWorkerNoDeadlock(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{Workers: 1})
	ctx := context.Background()
	p.Start(ctx)

	var ran atomic.Int64
	_, err := g.Submit(ctx, core.SubmitOptions{Work: func(tctx context.Context) error {
		self, ok := TaskID(tctx)
		if !ok {
			return errors.New("task id missing from context")
		}
		for i := 0; i < 4; i++ {
			_, err := g.Submit(tctx, core.SubmitOptions{Parent: self, Work: func(context.Context) error {
				ran.Add(1)
				return nil
			}})
			if err != nil {
				return err
			}
		}
		// The lone worker is occupied by this task, so waiting for the
		// children must fall back to running them at the scheduling point.
		return g.WaitChildren(self, p.Helper(tctx))
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := g.WaitChildren(core.None, nil); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if ran.Load() != 4 {
		t.Fatalf("expected 4 nested tasks to run, got %d", ran.Load())
	}
}

func TestPool_WorkerIDAvailableInTaskContext(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{Workers: 2})
	ctx := context.Background()
	p.Start(ctx)

	var mu sync.Mutex
	seen := map[int]bool{}
	for i := 0; i < 8; i++ {
		_, err := g.Submit(ctx, core.SubmitOptions{Work: func(tctx context.Context) error {
			id, ok := WorkerID(tctx)
			if !ok {
				return errors.New("worker id missing from context")
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
			return nil
		}})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if err := g.WaitChildren(core.None, nil); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	for id := range seen {
		if id < 0 || id >= 2 {
			t.Fatalf("worker id %d out of range", id)
		}
	}
}

func TestPool_PanicCapturedAndSurfacedAtWait(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{Workers: 2})
	ctx := context.Background()
	p.Start(ctx)

	_, err := g.Submit(ctx, core.SubmitOptions{Work: func(context.Context) error {
		panic("kaboom")
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	werr := g.WaitChildren(core.None, nil)
	if werr == nil {
		t.Fatalf("expected the panic to surface at the wait")
	}
	if !strings.Contains(werr.Error(), "kaboom") {
		t.Fatalf("expected panic payload in error, got %v", werr)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestPool_ShutdownTimeoutWhileTaskBlocked(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{Workers: 1, ShutdownDeadline: 50 * time.Millisecond})
	ctx := context.Background()
	p.Start(ctx)

	gate := make(chan struct{})
	started := make(chan struct{})
	_, err := g.Submit(ctx, core.SubmitOptions{Work: func(context.Context) error {
		close(started)
		<-gate
		return nil
	}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started

	if err := p.Shutdown(ctx); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}

	close(gate)
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown after unblocking: %v", err)
	}
}

func TestPool_ShutdownBeforeStart(t *testing.T) {
	g := graph.New(nil)
	p := New(g, Config{})
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown of an unstarted pool: %v", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Workers <= 0 {
		t.Fatalf("expected positive default worker count")
	}
	if cfg.SpinCount != 64 {
		t.Fatalf("expected default spin count 64, got %d", cfg.SpinCount)
	}
	if cfg.ShutdownDeadline != 5*time.Second {
		t.Fatalf("expected default shutdown deadline 5s, got %v", cfg.ShutdownDeadline)
	}
}
