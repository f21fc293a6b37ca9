// Package pool drives execution: a fixed set of workers repeatedly claims
// ready tasks from the graph and runs them until shutdown.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"taskloom/internal/core"
	"taskloom/internal/graph"
)

// ErrShutdownTimeout reports that workers failed to quiesce within the
// shutdown deadline. It is a warning condition: the caller chooses between
// abandoning the workers (goroutines cannot be force-killed) and waiting
// longer; the runtime never panics over it.
var ErrShutdownTimeout = errors.New("shutdown timeout")

// Config is the pool's tuning surface.
type Config struct {
	// Workers is the number of execution goroutines.
	// Default: runtime.NumCPU().
	Workers int

	// SpinCount bounds the cooperative-yield attempts an idle worker makes
	// before sleeping on the graph's condition variable. Default 64.
	SpinCount int

	// ShutdownDeadline bounds how long Shutdown waits for workers to
	// quiesce. Default 5s.
	ShutdownDeadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.SpinCount <= 0 {
		c.SpinCount = 64
	}
	if c.ShutdownDeadline <= 0 {
		c.ShutdownDeadline = 5 * time.Second
	}
	return c
}

// Pool is a fixed-size worker pool bound to one graph.
//
// Each worker loops claim -> run -> complete. A worker executing a task may
// itself submit children; submission never blocks, so the nested-task path
// cannot deadlock the pool.
type Pool struct {
	g   *graph.Graph
	cfg Config

	wg       sync.WaitGroup
	started  atomic.Bool
	stopping atomic.Bool
	active   atomic.Int32

	faultMu sync.Mutex
	fault   error // first complete-pairing violation, surfaced at Shutdown
}

// New creates a pool over g. Zero-valued config fields take defaults.
func New(g *graph.Graph, cfg Config) *Pool {
	return &Pool{g: g, cfg: cfg.withDefaults()}
}

// Workers returns the effective worker count.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Start launches the workers. It is a no-op after the first call.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	p.active.Store(int32(p.cfg.Workers))
	p.wg.Add(p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go p.worker(withWorkerID(ctx, i), i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.active.Add(-1)

	for {
		if p.stopping.Load() {
			return
		}
		if t, ok := p.g.ClaimReady(); ok {
			p.runClaimed(ctx, t)
			continue
		}
		if p.spinForWork() {
			continue
		}
		p.g.AwaitWork(p.stopping.Load)
	}
}

// spinForWork burns a bounded number of cooperative yields before the
// caller falls back to sleeping. Returns true when the main loop should
// retry a claim immediately.
func (p *Pool) spinForWork() bool {
	for i := 0; i < p.cfg.SpinCount; i++ {
		runtime.Gosched()
		if p.stopping.Load() || p.g.HasReady() {
			return true
		}
	}
	return false
}

func (p *Pool) runClaimed(ctx context.Context, t core.Task) {
	err := execute(withTaskID(ctx, t.ID), t.Work)
	if cerr := p.g.Complete(t.ID, err); cerr != nil {
		// Claim/complete pairing makes this unreachable; keep the first
		// violation observable instead of dropping it.
		p.faultMu.Lock()
		if p.fault == nil {
			p.fault = cerr
		}
		p.faultMu.Unlock()
	}
}

// execute runs a closure, converting a panic into an attached error so the
// task still completes and dependents are not deadlocked.
func execute(ctx context.Context, work core.Work) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return work(ctx)
}

// Helper returns a scheduling-point callback for blocked waiters: run one
// ready task if available, report whether one ran.
func (p *Pool) Helper(ctx context.Context) func() bool {
	return func() bool {
		t, ok := p.g.ClaimReady()
		if !ok {
			return false
		}
		p.runClaimed(ctx, t)
		return true
	}
}

// Shutdown signals workers to stop after their current task and waits for
// the pool to quiesce, polling under exponential backoff bounded by the
// configured deadline (or ctx, whichever ends first).
//
// Returns ErrShutdownTimeout (wrapped) if workers are still busy at the
// deadline; the workers themselves are left to finish and exit on their
// own.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopping.Store(true)
	p.g.Wake()
	if !p.started.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownDeadline)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Millisecond
	bo.MaxInterval = 50 * time.Millisecond

	err := backoff.Retry(func() error {
		p.g.Wake()
		if p.active.Load() > 0 {
			return fmt.Errorf("%d workers still active", p.active.Load())
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, err)
	}

	p.wg.Wait()
	p.faultMu.Lock()
	defer p.faultMu.Unlock()
	return p.fault
}
