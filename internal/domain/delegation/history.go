package delegation

import (
	"sort"
	"time"
)

// collapseWindow bounds how far apart two events may be while still counting
// as one fan-out action at display time.
const collapseWindow = 2 * time.Second

// MergeHistories concatenates salvaged event lists onto dst. Events are
// immutable facts, so no conflict resolution is needed; ordering is restored
// at read time.
func MergeHistories(dst []HistoryEvent, salvaged ...[]HistoryEvent) []HistoryEvent {
	merged := make([]HistoryEvent, 0, len(dst))
	merged = append(merged, dst...)
	for _, events := range salvaged {
		merged = append(merged, events...)
	}
	return merged
}

// DisplayHistory computes the rendered view of a raw event list. It is a pure
// function: nothing is persisted and running it twice yields the same result.
//
// Rules, in order:
//  1. When the viewer is a delegate, only events by the viewer or the
//     requester survive; salvaged rejection history of other delegates stays
//     private. Events without an actor id are kept.
//  2. Events are sorted chronologically ascending.
//  3. A "created" event is dropped when the same actor emitted a
//     "reactivated" event within the collapse window: the reactivation
//     supersedes the creation in the narrative.
//  4. Broadcast events (created, reactivated, updated) from the same actor
//     within the collapse window collapse into the first occurrence, since
//     one fan-out produces one such event per delegate record.
func DisplayHistory(events []HistoryEvent, viewerID, requesterID string) []HistoryEvent {
	viewerIsDelegate := viewerID != "" && viewerID != requesterID

	raw := make([]HistoryEvent, 0, len(events))
	for _, e := range events {
		if viewerIsDelegate && e.ActorID != "" && e.ActorID != viewerID && e.ActorID != requesterID {
			continue
		}
		raw = append(raw, e)
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].OccurredAt.Before(raw[j].OccurredAt)
	})

	reactivations := make([]HistoryEvent, 0, 4)
	for _, e := range raw {
		if e.Action == ActionReactivated {
			reactivations = append(reactivations, e)
		}
	}

	out := make([]HistoryEvent, 0, len(raw))
	for _, e := range raw {
		if e.Action == ActionCreated && supersededByReactivation(e, reactivations) {
			continue
		}
		if e.Action.broadcast() && containsNearDuplicate(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func supersededByReactivation(created HistoryEvent, reactivations []HistoryEvent) bool {
	for _, re := range reactivations {
		if re.ActorID == created.ActorID && within(re.OccurredAt, created.OccurredAt, collapseWindow) {
			return true
		}
	}
	return false
}

func containsNearDuplicate(kept []HistoryEvent, e HistoryEvent) bool {
	for _, existing := range kept {
		if existing.Action == e.Action &&
			existing.ActorID == e.ActorID &&
			within(existing.OccurredAt, e.OccurredAt, collapseWindow) {
			return true
		}
	}
	return false
}

func within(a, b time.Time, d time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff < d
}
