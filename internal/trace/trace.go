package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// RunTrace is the canonical, deterministic record of one graph run.
//
// Invariants:
//   - Captures logical scheduling decisions, not runtime occurrences.
//   - Must not include timestamps, worker identities, pointers, or any other
//     value that varies across interleavings of the same submission sequence.
//
// Canonical representation:
//   - Events are sorted via Canonicalize() using a fully-specified ordering.
//   - JSON serialization uses a custom marshaler to fix field order and omit
//     absent optional fields.
//
// A consumer producing traces should treat RunTrace as immutable once
// Canonicalize() has been called. The trace is observational only and must
// never affect scheduling behavior.
type RunTrace struct {
	// Label identifies the submission sequence the trace belongs to
	// (e.g. a workload name). Required.
	Label  string
	Events []Event
}

// EventKind is the stable discriminator for Event.
//
// The string values are part of the trace's canonical bytes; do not rename.
type EventKind string

const (
	EventSubmitted     EventKind = "TaskSubmitted"
	EventInlined       EventKind = "TaskInlined"
	EventPromoted      EventKind = "TaskPromoted"
	EventClaimed       EventKind = "TaskClaimed"
	EventCompleted     EventKind = "TaskCompleted"
	EventTagNormalized EventKind = "TagNormalized"
)

// Event is a single logical scheduling decision.
//
// Determinism constraints:
//   - No timestamps, no worker ids.
//   - No error strings or stack traces; failure is reduced to the stable
//     Reason code "Failed".
//   - Reason values are stable, logical codes (e.g. "DepsSatisfied",
//     "NoPredecessors", or a collapsed resource name for TagNormalized).
type Event struct {
	Kind EventKind

	// TaskID identifies the task the event refers to. Zero only for
	// inlined work, which never receives a graph entry.
	TaskID uint64

	// Reason is a stable, logical reason code.
	Reason string

	// CauseTaskID records a related task (e.g. the completing predecessor
	// that promoted this task).
	CauseTaskID uint64
}

// Validate checks basic invariants and returns a descriptive error.
func (t *RunTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.Label == "" {
		return errors.New("label is required")
	}
	for i := range t.Events {
		if t.Events[i].Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
	}
	return nil
}

// Canonicalize sorts the trace into its canonical form.
//
// Ordering guarantee: independent of execution timing or concurrency. The
// sort produces a total order over events with TaskID as the primary key.
func (t *RunTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.CauseTaskID < b.CauseTaskID
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventTagNormalized:
		return 10
	case EventSubmitted:
		return 20
	case EventInlined:
		return 30
	case EventPromoted:
		return 40
	case EventClaimed:
		return 50
	case EventCompleted:
		return 60
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy to avoid mutating the caller's slice.
func (t RunTrace) CanonicalJSON() ([]byte, error) {
	cp := RunTrace{Label: t.Label}
	cp.Events = make([]Event, len(t.Events))
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical
// JSON bytes.
func (t RunTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON ensures canonical field ordering.
func (t RunTrace) MarshalJSON() ([]byte, error) {
	if t.Label == "" {
		return nil, errors.New("label is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"label\":")
	lb, _ := json.Marshal(t.Label)
	buf.Write(lb)
	buf.WriteByte(',')

	buf.WriteString("\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON ensures canonical field ordering and omission of absent
// optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	if e.TaskID != 0 {
		buf.WriteString(",\"taskId\":")
		buf.WriteString(strconv.FormatUint(e.TaskID, 10))
	}
	if e.Reason != "" {
		buf.WriteString(",\"reason\":")
		rb, _ := json.Marshal(e.Reason)
		buf.Write(rb)
	}
	if e.CauseTaskID != 0 {
		buf.WriteString(",\"causeTaskId\":")
		buf.WriteString(strconv.FormatUint(e.CauseTaskID, 10))
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
