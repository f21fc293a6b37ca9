package core

// Effect declares how a task touches a named resource.
type Effect string

const (
	EffectIn    Effect = "in"
	EffectOut   Effect = "out"
	EffectInOut Effect = "inout"
)

// Tag is a declared data effect on a named resource.
//
// Tags drive dependency derivation: a task depends on every earlier
// incomplete sibling holding a writing effect on one of its tag names.
type Tag struct {
	Name   string
	Effect Effect
}

// Writes reports whether the effect may mutate the resource.
func (e Effect) Writes() bool {
	return e == EffectOut || e == EffectInOut
}

// Valid reports whether e is one of the three declared effects.
func (e Effect) Valid() bool {
	switch e {
	case EffectIn, EffectOut, EffectInOut:
		return true
	default:
		return false
	}
}

// Conflicts reports whether two tags on the same resource impose an
// ordering. Read/read never conflicts; any pairing involving a write does.
func Conflicts(a, b Tag) bool {
	if a.Name != b.Name {
		return false
	}
	return a.Effect.Writes() || b.Effect.Writes()
}

// NormalizeTags collapses duplicate resource names in a declared tag list.
//
// Listing the same resource twice with different effects is a submitter
// error; the policy is last-listed effect wins. The returned warnings name
// each collapsed resource so the caller can surface them.
//
// The returned slice preserves first-occurrence order and is always a fresh
// allocation; the input is never mutated.
func NormalizeTags(tags []Tag) ([]Tag, []string) {
	if len(tags) == 0 {
		return nil, nil
	}

	out := make([]Tag, 0, len(tags))
	index := make(map[string]int, len(tags))
	var warnings []string

	for _, t := range tags {
		i, seen := index[t.Name]
		if !seen {
			index[t.Name] = len(out)
			out = append(out, t)
			continue
		}
		if out[i].Effect != t.Effect {
			warnings = append(warnings, t.Name)
		}
		out[i].Effect = t.Effect
	}
	return out, warnings
}
