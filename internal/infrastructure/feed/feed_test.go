package feed

import (
	"context"
	"testing"

	"doora/internal/ports"
)

func TestPublishReachesMatchingSubscribers(t *testing.T) {
	f := New()
	ctx := context.Background()

	all, cancelAll := f.Subscribe(ports.ChangeFilter{})
	defer cancelAll()
	bob, cancelBob := f.Subscribe(ports.ChangeFilter{UserID: "bob"})
	defer cancelBob()
	carol, cancelCarol := f.Subscribe(ports.ChangeFilter{UserID: "carol"})
	defer cancelCarol()

	f.Publish(ctx, ports.Change{
		Kind:        ports.ChangeUpdated,
		RecordID:    "r1",
		RequesterID: "req",
		DelegateID:  "bob",
	})

	if got := len(all); got != 1 {
		t.Fatalf("unfiltered subscriber got %d changes, want 1", got)
	}
	if got := len(bob); got != 1 {
		t.Fatalf("bob got %d changes, want 1", got)
	}
	if got := len(carol); got != 0 {
		t.Fatalf("carol got %d changes, want 0", got)
	}

	change := <-bob
	if change.RecordID != "r1" {
		t.Fatalf("record id = %q, want r1", change.RecordID)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	f := New()
	ch, cancel := f.Subscribe(ports.ChangeFilter{})

	cancel()
	cancel() // second cancel must be harmless

	if _, ok := <-ch; ok {
		t.Fatal("channel must be closed after cancel")
	}

	// Publishing after cancel must not panic.
	f.Publish(context.Background(), ports.Change{RecordID: "r2"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	f := New()
	ctx := context.Background()

	ch, cancel := f.Subscribe(ports.ChangeFilter{})
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		f.Publish(ctx, ports.Change{RecordID: "r"})
	}

	if got := len(ch); got != subscriberBuffer {
		t.Fatalf("buffered changes = %d, want %d", got, subscriberBuffer)
	}
}
