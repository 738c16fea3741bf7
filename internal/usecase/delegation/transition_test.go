package delegation

import (
	"context"
	"errors"
	"testing"

	domaindelegation "doora/internal/domain/delegation"
	"doora/internal/infrastructure/persistence/sqlite/model"
	"doora/internal/ports"
)

func TestAcceptClaimsGroupAndRemovesSiblings(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben, chloe, dave)
	benRecord := recordFor(t, svc, result, ben.ID)

	accepted, err := svc.Accept(ctx, TransitionInput{RecordID: benRecord.ID, Actor: ben})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domaindelegation.StatusAccepted {
		t.Fatalf("status = %s, want accepted", accepted.Status)
	}

	items, err := svc.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("requester sees %d records after convergence, want 1", len(items))
	}
	if items[0].Record.ID != benRecord.ID {
		t.Fatalf("surviving record = %s, want winner %s", items[0].Record.ID, benRecord.ID)
	}

	// The losers' creation events were salvaged onto the winner.
	winner, err := svc.GetRecord(ctx, benRecord.ID, alice.ID)
	if err != nil {
		t.Fatalf("get winner: %v", err)
	}
	salvagedCreates := 0
	for _, e := range winner.History {
		if e.Action == domaindelegation.ActionCreated {
			salvagedCreates++
		}
	}
	if salvagedCreates != 3 {
		t.Fatalf("winner carries %d created events, want 3 (own plus two salvaged)", salvagedCreates)
	}

	// Displaced delegates are told; the winner is not.
	for _, loser := range []Actor{chloe, dave} {
		if !hasNotificationKind(notificationsFor(t, svc, loser.ID), ports.NotifyKindRequestClosed) {
			t.Fatalf("loser %s missing request_closed notification", loser.ID)
		}
	}
	if hasNotificationKind(notificationsFor(t, svc, ben.ID), ports.NotifyKindRequestClosed) {
		t.Fatal("winner must not receive a request_closed notification")
	}
	if !hasNotificationKind(notificationsFor(t, svc, alice.ID), ports.NotifyKindRequestAccepted) {
		t.Fatal("requester missing request_accepted notification")
	}
}

func TestAcceptRejectsWrongActor(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	_, err := svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: alice})
	if !errors.Is(err, domaindelegation.ErrWrongActor) {
		t.Fatalf("err = %v, want ErrWrongActor", err)
	}

	_, err = svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: dave})
	if !errors.Is(err, domaindelegation.ErrNotParticipant) {
		t.Fatalf("err = %v, want ErrNotParticipant", err)
	}
}

func TestProposeAndAcceptProposal(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	counter := domaindelegation.Window{Date: "2026-09-03", From: "09:00", To: "12:00"}
	proposed, err := svc.Propose(ctx, ProposeInput{RecordID: record.ID, Actor: ben, Window: counter})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposed.Status != domaindelegation.StatusProposal {
		t.Fatalf("status = %s, want proposal", proposed.Status)
	}
	if proposed.Window != counter {
		t.Fatal("proposal must carry the counter window")
	}
	if proposed.Original != record.Window {
		t.Fatal("the requester's window must be preserved as original")
	}
	if !hasNotificationKind(notificationsFor(t, svc, alice.ID), ports.NotifyKindProposal) {
		t.Fatal("requester missing proposal notification")
	}

	accepted, err := svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: alice})
	if err != nil {
		t.Fatalf("accept proposal: %v", err)
	}
	if accepted.Status != domaindelegation.StatusAccepted {
		t.Fatalf("status = %s, want accepted", accepted.Status)
	}

	var sawProposalAccepted bool
	for _, e := range accepted.History {
		if e.Action == domaindelegation.ActionProposalAccepted {
			sawProposalAccepted = true
		}
	}
	if !sawProposalAccepted {
		t.Fatal("history missing proposal_accepted event")
	}
}

func TestDeclineStaysVisibleToRequesterOnly(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	declined, err := svc.Decline(ctx, TransitionInput{RecordID: record.ID, Actor: ben})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != domaindelegation.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", declined.Status)
	}

	requesterView, err := svc.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list for requester: %v", err)
	}
	if len(requesterView) != 1 {
		t.Fatalf("requester sees %d records, want the declined one", len(requesterView))
	}

	delegateView, err := svc.ListRecords(ctx, ben.ID)
	if err != nil {
		t.Fatalf("list for delegate: %v", err)
	}
	if len(delegateView) != 0 {
		t.Fatalf("delegate sees %d records, want 0 after declining", len(delegateView))
	}

	if !hasNotificationKind(notificationsFor(t, svc, alice.ID), ports.NotifyKindRequestRejected) {
		t.Fatal("requester missing request_rejected notification")
	}
}

func TestCollectedAndCompletedBumpProfileCounters(t *testing.T) {
	svc, db := setupServiceWithDB(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	if _, err := svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.MarkCollected(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if _, err := svc.MarkCompleted(ctx, TransitionInput{RecordID: record.ID, Actor: alice}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	var benProfile model.UserProfile
	if err := db.Where("user_id = ?", ben.ID).Take(&benProfile).Error; err != nil {
		t.Fatalf("load delegate profile: %v", err)
	}
	if benProfile.PackagesCollected != 1 || benProfile.NeighborsHelped != 1 {
		t.Fatalf("delegate counters = %+v, want collected=1 helped=1", benProfile)
	}

	var aliceProfile model.UserProfile
	if err := db.Where("user_id = ?", alice.ID).Take(&aliceProfile).Error; err != nil {
		t.Fatalf("load requester profile: %v", err)
	}
	if aliceProfile.PackagesDelegated != 1 {
		t.Fatalf("requester counters = %+v, want delegated=1", aliceProfile)
	}

	if !hasNotificationKind(notificationsFor(t, svc, alice.ID), ports.NotifyKindPackageCollected) {
		t.Fatal("requester missing package_collected notification")
	}
	if !hasNotificationKind(notificationsFor(t, svc, ben.ID), ports.NotifyKindPackageCompleted) {
		t.Fatal("delegate missing package_completed notification")
	}
}

func TestInvalidTransitionIsRejected(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	_, err := svc.MarkCollected(ctx, TransitionInput{RecordID: record.ID, Actor: ben})
	if !errors.Is(err, domaindelegation.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for pending -> collected", err)
	}

	_, err = svc.MarkCompleted(ctx, TransitionInput{RecordID: record.ID, Actor: alice})
	if !errors.Is(err, domaindelegation.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition for pending -> completed", err)
	}
}

func TestRateRequiresCompletedRecord(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	record := recordFor(t, svc, result, ben.ID)

	_, err := svc.Rate(ctx, RateInput{RecordID: record.ID, Actor: alice, Stars: 5})
	if !errors.Is(err, domaindelegation.ErrNotRatable) {
		t.Fatalf("err = %v, want ErrNotRatable", err)
	}

	_, err = svc.Rate(ctx, RateInput{RecordID: record.ID, Actor: alice, Stars: 0})
	if !errors.Is(err, domaindelegation.ErrRatingRange) {
		t.Fatalf("err = %v, want ErrRatingRange", err)
	}

	if _, err := svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.MarkCollected(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if _, err := svc.MarkCompleted(ctx, TransitionInput{RecordID: record.ID, Actor: alice}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rated, err := svc.Rate(ctx, RateInput{RecordID: record.ID, Actor: alice, Stars: 4})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating != 4 {
		t.Fatalf("rating = %d, want 4", rated.Rating)
	}
	if !hasNotificationKind(notificationsFor(t, svc, ben.ID), ports.NotifyKindRating) {
		t.Fatal("delegate missing rating notification")
	}
}
