package trace

import (
	"strings"
	"testing"
)

func TestCanonicalize_OrdersByTaskThenKind(t *testing.T) {
	tr := RunTrace{
		Label: "t",
		Events: []Event{
			{Kind: EventCompleted, TaskID: 2},
			{Kind: EventClaimed, TaskID: 2},
			{Kind: EventCompleted, TaskID: 1},
			{Kind: EventSubmitted, TaskID: 1},
		},
	}
	tr.Canonicalize()

	want := []Event{
		{Kind: EventSubmitted, TaskID: 1},
		{Kind: EventCompleted, TaskID: 1},
		{Kind: EventClaimed, TaskID: 2},
		{Kind: EventCompleted, TaskID: 2},
	}
	for i, ev := range want {
		if tr.Events[i] != ev {
			t.Fatalf("event %d: expected %+v, got %+v", i, ev, tr.Events[i])
		}
	}
}

func TestHash_StableAcrossInsertionOrders(t *testing.T) {
	a := RunTrace{Label: "t", Events: []Event{
		{Kind: EventSubmitted, TaskID: 1},
		{Kind: EventSubmitted, TaskID: 2},
		{Kind: EventCompleted, TaskID: 1},
		{Kind: EventCompleted, TaskID: 2},
	}}
	b := RunTrace{Label: "t", Events: []Event{
		{Kind: EventCompleted, TaskID: 2},
		{Kind: EventSubmitted, TaskID: 1},
		{Kind: EventCompleted, TaskID: 1},
		{Kind: EventSubmitted, TaskID: 2},
	}}

	ha, err := a.Hash()
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := b.Hash()
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("hashes differ for the same logical trace: %s vs %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("expected sha256 hex, got %q", ha)
	}
}

func TestHash_SensitiveToContent(t *testing.T) {
	a := RunTrace{Label: "t", Events: []Event{{Kind: EventSubmitted, TaskID: 1}}}
	b := RunTrace{Label: "t", Events: []Event{{Kind: EventSubmitted, TaskID: 2}}}
	ha, _ := a.Hash()
	hb, _ := b.Hash()
	if ha == hb {
		t.Fatalf("different traces must not collide trivially")
	}
}

func TestMarshalJSON_OmitsAbsentOptionalFields(t *testing.T) {
	tr := RunTrace{Label: "t", Events: []Event{{Kind: EventInlined, Reason: "IfClauseFalse"}}}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "taskId") || strings.Contains(s, "causeTaskId") {
		t.Fatalf("zero ids must be omitted: %s", s)
	}
	if !strings.HasPrefix(s, `{"label":"t","events":[`) {
		t.Fatalf("unexpected field ordering: %s", s)
	}
}

func TestValidate_RejectsMissingLabelAndKind(t *testing.T) {
	missingLabel := RunTrace{Events: []Event{{Kind: EventSubmitted, TaskID: 1}}}
	if err := missingLabel.Validate(); err == nil {
		t.Fatalf("expected error for missing label")
	}
	missingKind := RunTrace{Label: "t", Events: []Event{{TaskID: 1}}}
	if err := missingKind.Validate(); err == nil {
		t.Fatalf("expected error for missing event kind")
	}
}

func TestSafeRecord_SwallowsSinkPanics(t *testing.T) {
	SafeRecord(nil, Event{Kind: EventSubmitted})
	SafeRecord(panicSink{}, Event{Kind: EventSubmitted})
}

type panicSink struct{}

func (panicSink) Record(Event) { panic("bad sink") }

func TestRecorder_SnapshotIsIndependentCopy(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: EventSubmitted, TaskID: 1})

	snap := r.Snapshot()
	snap[0].TaskID = 99
	if got := r.Snapshot()[0].TaskID; got != 1 {
		t.Fatalf("mutating a snapshot leaked into the recorder: %d", got)
	}
}

func TestComputeTraceHash_EmptyInput(t *testing.T) {
	if got := ComputeTraceHash(nil); got != "" {
		t.Fatalf("expected empty hash for empty input, got %q", got)
	}
}
