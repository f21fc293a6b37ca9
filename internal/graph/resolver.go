package graph

import (
	"sort"

	"taskloom/internal/core"
)

// sibling is the resolver's read-only view of an incomplete sibling task.
type sibling struct {
	id   core.TaskID
	tags []core.Tag
}

// predecessors derives the predecessor set for a task declaring tags,
// scanned against the earlier incomplete siblings sharing its parent.
//
// Matching rule: two tags conflict iff they name the same resource and at
// least one side's effect is out or inout. Read/read never conflicts. Every
// conflicting sibling is included; the task becomes ready only once all of
// them complete.
//
// This function is pure: it does not mutate its inputs. The returned ids
// are sorted ascending.
func predecessors(tags []core.Tag, sibs []sibling) []core.TaskID {
	if len(tags) == 0 || len(sibs) == 0 {
		return nil
	}

	var preds []core.TaskID
	for _, sib := range sibs {
		if conflictsAny(tags, sib.tags) {
			preds = append(preds, sib.id)
		}
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i] < preds[j] })
	return preds
}

func conflictsAny(a, b []core.Tag) bool {
	for _, ta := range a {
		for _, tb := range b {
			if core.Conflicts(ta, tb) {
				return true
			}
		}
	}
	return false
}
