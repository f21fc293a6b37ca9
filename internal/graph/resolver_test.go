package graph

import (
	"reflect"
	"testing"

	"taskloom/internal/core"
)

func TestPredecessors_ReadersDoNotChain(t *testing.T) {
	sibs := []sibling{
		{id: 1, tags: []core.Tag{{Name: "x", Effect: core.EffectIn}}},
		{id: 2, tags: []core.Tag{{Name: "x", Effect: core.EffectIn}}},
	}
	preds := predecessors([]core.Tag{{Name: "x", Effect: core.EffectIn}}, sibs)
	if len(preds) != 0 {
		t.Fatalf("in/in must not produce predecessors, got %v", preds)
	}
}

func TestPredecessors_WriterBlocksReader(t *testing.T) {
	sibs := []sibling{
		{id: 1, tags: []core.Tag{{Name: "x", Effect: core.EffectOut}}},
	}
	preds := predecessors([]core.Tag{{Name: "x", Effect: core.EffectIn}}, sibs)
	if !reflect.DeepEqual(preds, []core.TaskID{1}) {
		t.Fatalf("expected [1], got %v", preds)
	}
}

func TestPredecessors_AllConflictingSiblingsIncluded(t *testing.T) {
	sibs := []sibling{
		{id: 3, tags: []core.Tag{{Name: "a", Effect: core.EffectOut}}},
		{id: 1, tags: []core.Tag{{Name: "b", Effect: core.EffectInOut}}},
		{id: 2, tags: []core.Tag{{Name: "c", Effect: core.EffectIn}}},
	}
	preds := predecessors([]core.Tag{
		{Name: "a", Effect: core.EffectIn},
		{Name: "b", Effect: core.EffectIn},
		{Name: "c", Effect: core.EffectIn},
	}, sibs)
	// Both writers, sorted ascending; the pure reader of c is excluded.
	if !reflect.DeepEqual(preds, []core.TaskID{1, 3}) {
		t.Fatalf("expected [1 3], got %v", preds)
	}
}

func TestPredecessors_ReaderBlocksWriter(t *testing.T) {
	// WAR ordering: an earlier reader orders a later writer of the same
	// resource.
	sibs := []sibling{
		{id: 1, tags: []core.Tag{{Name: "x", Effect: core.EffectIn}}},
	}
	preds := predecessors([]core.Tag{{Name: "x", Effect: core.EffectOut}}, sibs)
	if !reflect.DeepEqual(preds, []core.TaskID{1}) {
		t.Fatalf("expected [1], got %v", preds)
	}
}

func TestPredecessors_DisjointResourcesIndependent(t *testing.T) {
	sibs := []sibling{
		{id: 1, tags: []core.Tag{{Name: "x", Effect: core.EffectOut}}},
	}
	preds := predecessors([]core.Tag{{Name: "y", Effect: core.EffectOut}}, sibs)
	if len(preds) != 0 {
		t.Fatalf("disjoint resources must not chain, got %v", preds)
	}
}
