package cli

import (
	"context"
	"fmt"
	"sync/atomic"

	"taskloom/internal/barrier"
	"taskloom/internal/core"
	"taskloom/internal/graph"
	"taskloom/internal/pool"
)

// workload is one self-contained submission sequence against a fresh graph.
type workload struct {
	name string
	run  func(ctx context.Context, g *graph.Graph, p *pool.Pool) error
}

func demoWorkloads() []workload {
	return []workload{
		chainWorkload(),
		fanoutWorkload("fanout", 100),
		nestedWorkload(),
	}
}

// chainWorkload submits three root tasks chained purely through data
// effects: A(out:x), B(in:x, out:y), C(in:y).
func chainWorkload() workload {
	return workload{
		name: "chain",
		run: func(ctx context.Context, g *graph.Graph, p *pool.Pool) error {
			var stage atomic.Int32
			step := func(expect int32) core.Work {
				return func(context.Context) error {
					if !stage.CompareAndSwap(expect, expect+1) {
						return fmt.Errorf("stage %d ran out of order", expect)
					}
					return nil
				}
			}

			submits := []core.SubmitOptions{
				{Tags: []core.Tag{{Name: "x", Effect: core.EffectOut}}, Work: step(0)},
				{Tags: []core.Tag{{Name: "x", Effect: core.EffectIn}, {Name: "y", Effect: core.EffectOut}}, Work: step(1)},
				{Tags: []core.Tag{{Name: "y", Effect: core.EffectIn}}, Work: step(2)},
			}
			for _, opts := range submits {
				if _, err := g.Submit(ctx, opts); err != nil {
					return err
				}
			}
			return barrier.New(g, p.Helper(ctx)).Taskwait(core.None)
		},
	}
}

// fanoutWorkload submits n independent tasks with disjoint tags; their sum
// is order-insensitive, so any interleaving yields the same result.
func fanoutWorkload(name string, n int) workload {
	return workload{
		name: name,
		run: func(ctx context.Context, g *graph.Graph, p *pool.Pool) error {
			var sum atomic.Int64
			for i := 0; i < n; i++ {
				v := int64(i + 1)
				opts := core.SubmitOptions{
					Tags: []core.Tag{{Name: fmt.Sprintf("slice-%d", i), Effect: core.EffectOut}},
					Work: func(context.Context) error {
						sum.Add(v)
						return nil
					},
				}
				if _, err := g.Submit(ctx, opts); err != nil {
					return err
				}
			}
			if err := barrier.New(g, p.Helper(ctx)).Taskwait(core.None); err != nil {
				return err
			}
			want := int64(n) * int64(n+1) / 2
			if got := sum.Load(); got != want {
				return fmt.Errorf("sum mismatch: got %d, want %d", got, want)
			}
			return nil
		},
	}
}

// nestedWorkload opens a taskgroup, submits a parent task that fans out 5
// children with 2 grandchildren each, and drains the whole subtree.
func nestedWorkload() workload {
	return workload{
		name: "nested",
		run: func(ctx context.Context, g *graph.Graph, p *pool.Pool) error {
			scope, err := g.OpenScope(0)
			if err != nil {
				return err
			}
			var ran atomic.Int32

			parent := core.SubmitOptions{
				Scope: scope,
				Work: func(tctx context.Context) error {
					self, _ := pool.TaskID(tctx)
					for c := 0; c < 5; c++ {
						child := core.SubmitOptions{
							Parent: self,
							Work: func(cctx context.Context) error {
								cself, _ := pool.TaskID(cctx)
								for gc := 0; gc < 2; gc++ {
									grand := core.SubmitOptions{
										Parent: cself,
										Work: func(context.Context) error {
											ran.Add(1)
											return nil
										},
									}
									if _, err := g.Submit(cctx, grand); err != nil {
										return err
									}
								}
								ran.Add(1)
								return nil
							},
						}
						if _, err := g.Submit(tctx, child); err != nil {
							return err
						}
					}
					ran.Add(1)
					return nil
				},
			}
			if _, err := g.Submit(ctx, parent); err != nil {
				return err
			}

			if err := barrier.New(g, p.Helper(ctx)).TaskgroupWait(scope); err != nil {
				return err
			}
			if got := ran.Load(); got != 16 {
				return fmt.Errorf("expected 16 tasks to run, got %d", got)
			}
			return nil
		},
	}
}
