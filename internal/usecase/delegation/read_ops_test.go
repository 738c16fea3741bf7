package delegation

import (
	"context"
	"errors"
	"testing"

	domaindelegation "doora/internal/domain/delegation"
	"doora/internal/ports"
)

func TestListRecordsLabelsDirections(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	fanOutTo(t, svc, alice, "Shoes", ben)
	fanOutTo(t, svc, ben, "Books", alice)

	items, err := svc.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("records = %d, want 2", len(items))
	}

	byLabel := make(map[string]Direction, 2)
	for _, item := range items {
		byLabel[item.Record.DeliveryLabel] = item.Direction
	}
	if byLabel["Shoes"] != DirectionOutgoing {
		t.Fatalf("Shoes direction = %s, want outgoing", byLabel["Shoes"])
	}
	if byLabel["Books"] != DirectionIncoming {
		t.Fatalf("Books direction = %s, want incoming", byLabel["Books"])
	}
}

func TestGetRecordRestrictedToParticipants(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	if _, err := svc.GetRecord(ctx, record.ID, ben.ID); err != nil {
		t.Fatalf("delegate read: %v", err)
	}
	if _, err := svc.GetRecord(ctx, record.ID, chloe.ID); !errors.Is(err, domaindelegation.ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
	if _, err := svc.GetRecord(ctx, "missing", alice.ID); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound", err)
	}
}

func TestGroupHistoryViews(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben, chloe)
	benRecord := recordFor(t, svc, result, ben.ID)
	chloeRecord := recordFor(t, svc, result, chloe.ID)

	if _, err := svc.Decline(ctx, TransitionInput{RecordID: chloeRecord.ID, Actor: chloe}); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// The requester sees the whole group: chloe's rejection included, and the
	// two near-simultaneous created events collapsed into one.
	requesterView, err := svc.GroupHistory(ctx, GroupHistoryInput{RecordID: benRecord.ID, ViewerID: alice.ID})
	if err != nil {
		t.Fatalf("requester history: %v", err)
	}

	counts := make(map[domaindelegation.Action]int)
	for _, e := range requesterView {
		counts[e.Action]++
	}
	if counts[domaindelegation.ActionCreated] != 1 {
		t.Fatalf("requester sees %d created events, want 1 collapsed", counts[domaindelegation.ActionCreated])
	}
	if counts[domaindelegation.ActionRejected] != 1 {
		t.Fatalf("requester sees %d rejected events, want 1", counts[domaindelegation.ActionRejected])
	}

	// Ben only sees his own record and never chloe's rejection.
	delegateView, err := svc.GroupHistory(ctx, GroupHistoryInput{RecordID: benRecord.ID, ViewerID: ben.ID})
	if err != nil {
		t.Fatalf("delegate history: %v", err)
	}
	for _, e := range delegateView {
		if e.Action == domaindelegation.ActionRejected {
			t.Fatal("delegate must not see another delegate's rejection")
		}
	}

	if _, err := svc.GroupHistory(ctx, GroupHistoryInput{RecordID: benRecord.ID, ViewerID: dave.ID}); !errors.Is(err, domaindelegation.ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestRemoveByRequesterDeletesRecord(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	if err := svc.Remove(ctx, TransitionInput{RecordID: record.ID, Actor: alice}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := svc.repo.GetRecord(ctx, record.ID); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("err = %v, want ErrRecordNotFound after requester removal", err)
	}
}

func TestRemoveByDelegateDeclinesInstead(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	if err := svc.Remove(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("remove as delegate: %v", err)
	}

	kept, err := svc.repo.GetRecord(ctx, record.ID)
	if err != nil {
		t.Fatalf("record must survive a delegate removal: %v", err)
	}
	if kept.Status != domaindelegation.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", kept.Status)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	fanOutTo(t, svc, alice, "Shoes", ben, chloe)

	items := notificationsFor(t, svc, ben.ID)
	if len(items) != 1 {
		t.Fatalf("notifications = %d, want 1", len(items))
	}
	if items[0].IsRead {
		t.Fatal("fresh notification must be unread")
	}

	if err := svc.MarkNotificationsRead(ctx, ben.ID, []string{items[0].ID}); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	items = notificationsFor(t, svc, ben.ID)
	if !items[0].IsRead {
		t.Fatal("notification still unread after mark")
	}

	if err := svc.DeleteNotification(ctx, ben.ID, items[0].ID); err != nil {
		t.Fatalf("delete notification: %v", err)
	}
	if got := len(notificationsFor(t, svc, ben.ID)); got != 0 {
		t.Fatalf("notifications = %d after delete, want 0", got)
	}

	// Clearing another user's inbox leaves chloe's untouched until she clears.
	if err := svc.ClearNotifications(ctx, ben.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := len(notificationsFor(t, svc, chloe.ID)); got != 1 {
		t.Fatalf("chloe notifications = %d, want 1", got)
	}
	if err := svc.ClearNotifications(ctx, chloe.ID); err != nil {
		t.Fatalf("clear chloe: %v", err)
	}
	if got := len(notificationsFor(t, svc, chloe.ID)); got != 0 {
		t.Fatalf("chloe notifications = %d after clear, want 0", got)
	}
}
