package delegation

import (
	"testing"
	"time"
)

func at(sec int) time.Time {
	return time.Date(2024, 1, 20, 10, 0, sec, 0, time.UTC)
}

func TestDisplayHistorySortsAscending(t *testing.T) {
	events := []HistoryEvent{
		{OccurredAt: at(30), Action: ActionAccepted, ActorID: "bob"},
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(10), Action: ActionRejected, ActorID: "alice"},
	}

	out := DisplayHistory(events, "req", "req")
	if len(out) != 3 {
		t.Fatalf("events = %d, want 3", len(out))
	}
	if out[0].Action != ActionCreated || out[2].Action != ActionAccepted {
		t.Fatalf("unexpected order: %v %v %v", out[0].Action, out[1].Action, out[2].Action)
	}
}

func TestDisplayHistoryCollapsesCreationIntoReactivation(t *testing.T) {
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(1), Action: ActionReactivated, ActorID: "req"},
	}

	out := DisplayHistory(events, "req", "req")
	if len(out) != 1 {
		t.Fatalf("events = %d, want 1", len(out))
	}
	if out[0].Action != ActionReactivated {
		t.Fatalf("surviving action = %q, want reactivated", out[0].Action)
	}
}

func TestDisplayHistoryKeepsDistantCreation(t *testing.T) {
	// Creation, rejection and a reactivation days later are three distinct
	// narrative entries, not a rapid repeat.
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(20), Action: ActionRejected, ActorID: "alice"},
		{OccurredAt: at(0).Add(48 * time.Hour), Action: ActionReactivated, ActorID: "req"},
	}

	out := DisplayHistory(events, "req", "req")
	if len(out) != 3 {
		t.Fatalf("events = %d, want 3", len(out))
	}
}

func TestDisplayHistoryCollapsesBroadcasts(t *testing.T) {
	// One fan-out to three delegates writes one "created" event per record;
	// the merged view must read as a single action.
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(1), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(5), Action: ActionAccepted, ActorID: "bob"},
	}

	out := DisplayHistory(events, "req", "req")
	if len(out) != 2 {
		t.Fatalf("events = %d, want 2", len(out))
	}
}

func TestDisplayHistoryNeverCollapsesNonBroadcasts(t *testing.T) {
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionRejected, ActorID: "alice"},
		{OccurredAt: at(0), Action: ActionRejected, ActorID: "alice"},
	}

	out := DisplayHistory(events, "req", "req")
	if len(out) != 2 {
		t.Fatalf("rejected events = %d, want 2", len(out))
	}
}

func TestDisplayHistoryFiltersForDelegateViewer(t *testing.T) {
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(10), Action: ActionRejected, ActorID: "alice"},
		{OccurredAt: at(20), Action: ActionAccepted, ActorID: "bob"},
		{OccurredAt: at(25), Action: ActionUpdated, ActorID: ""},
	}

	out := DisplayHistory(events, "bob", "req")
	for _, e := range out {
		if e.ActorID == "alice" {
			t.Fatal("delegate viewer must not see another delegate's events")
		}
	}
	if len(out) != 3 {
		t.Fatalf("events = %d, want 3 (requester, self, system)", len(out))
	}
}

func TestDisplayHistoryIsStable(t *testing.T) {
	events := []HistoryEvent{
		{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"},
		{OccurredAt: at(1), Action: ActionReactivated, ActorID: "req"},
		{OccurredAt: at(1), Action: ActionReactivated, ActorID: "req"},
		{OccurredAt: at(9), Action: ActionAccepted, ActorID: "bob"},
	}

	once := DisplayHistory(events, "req", "req")
	twice := DisplayHistory(once, "req", "req")
	if len(once) != len(twice) {
		t.Fatalf("dedup not stable: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("dedup not stable at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestMergeHistoriesKeepsEverything(t *testing.T) {
	dst := []HistoryEvent{{OccurredAt: at(0), Action: ActionCreated, ActorID: "req"}}
	a := []HistoryEvent{{OccurredAt: at(1), Action: ActionRejected, ActorID: "alice"}}
	b := []HistoryEvent{{OccurredAt: at(2), Action: ActionRejected, ActorID: "carol"}}

	merged := MergeHistories(dst, a, b)
	if len(merged) != 3 {
		t.Fatalf("merged = %d, want 3", len(merged))
	}
	if len(dst) != 1 {
		t.Fatal("MergeHistories must not mutate its input")
	}
}
