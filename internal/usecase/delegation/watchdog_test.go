package delegation

import (
	"context"
	"testing"
	"time"

	domaindelegation "doora/internal/domain/delegation"
	"doora/internal/ports"
)

func TestConvergeGroupWithoutWinnerIsNoOp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	fanOutTo(t, svc, alice, "Shoes", ben, chloe)

	if err := svc.ConvergeGroup(ctx, alice.ID, "Shoes", alice.ID); err != nil {
		t.Fatalf("converge: %v", err)
	}

	items, err := svc.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("records = %d, want 2 untouched pending records", len(items))
	}
}

func TestConvergeGroupIsIdempotent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben, chloe)
	record := recordFor(t, svc, result, ben.ID)

	if _, err := svc.Accept(ctx, TransitionInput{RecordID: record.ID, Actor: ben}); err != nil {
		t.Fatalf("accept: %v", err)
	}

	before, err := svc.GetRecord(ctx, record.ID, alice.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}

	// A second pass finds no losers and must change nothing.
	if err := svc.ConvergeGroup(ctx, alice.ID, "Shoes", ben.ID); err != nil {
		t.Fatalf("second converge: %v", err)
	}

	after, err := svc.GetRecord(ctx, record.ID, alice.ID)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if len(after.History) != len(before.History) {
		t.Fatalf("history grew from %d to %d on idempotent pass", len(before.History), len(after.History))
	}
}

func TestConvergeProtectsFinishedDeliveries(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	result := fanOutTo(t, svc, alice, "Shoes", ben)
	benRecord := recordFor(t, svc, result, ben.ID)

	if _, err := svc.Accept(ctx, TransitionInput{RecordID: benRecord.ID, Actor: ben}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.MarkCollected(ctx, TransitionInput{RecordID: benRecord.ID, Actor: ben}); err != nil {
		t.Fatalf("collect: %v", err)
	}

	// A new request for the same delivery goes out and another neighbor
	// accepts; the collected record must survive the convergence pass.
	second := fanOutTo(t, svc, alice, "Shoes", chloe)
	chloeRecord := recordFor(t, svc, second, chloe.ID)

	if _, err := svc.Accept(ctx, TransitionInput{RecordID: chloeRecord.ID, Actor: chloe}); err != nil {
		t.Fatalf("accept second: %v", err)
	}

	survivor, err := svc.GetRecord(ctx, benRecord.ID, alice.ID)
	if err != nil {
		t.Fatalf("collected record was removed by convergence: %v", err)
	}
	if survivor.Status != domaindelegation.StatusCollected {
		t.Fatalf("status = %s, want collected", survivor.Status)
	}
}

func TestRunnerStopCancelsPendingPasses(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	// A group with a winner and a stale sibling, so a convergence pass that
	// slipped past Stop would visibly delete a record.
	winner, err := svc.repo.CreateRecord(ctx, domaindelegation.Record{
		RequesterID:   alice.ID,
		RequesterName: alice.Name,
		DelegateID:    ben.ID,
		DelegateName:  ben.Name,
		DeliveryLabel: "Shoes",
		Window:        testWindow(),
		Original:      testWindow(),
		Status:        domaindelegation.StatusAccepted,
		Code:          newCode(),
	})
	if err != nil {
		t.Fatalf("seed winner: %v", err)
	}
	if _, err := svc.repo.CreateRecord(ctx, domaindelegation.Record{
		RequesterID:   alice.ID,
		RequesterName: alice.Name,
		DelegateID:    chloe.ID,
		DelegateName:  chloe.Name,
		DeliveryLabel: "Shoes",
		Window:        testWindow(),
		Original:      testWindow(),
		Status:        domaindelegation.StatusPending,
		Code:          newCode(),
	}); err != nil {
		t.Fatalf("seed stale sibling: %v", err)
	}

	runner := NewRunner(svc, svc.feed, 200*time.Millisecond)
	runner.Start(ctx)

	svc.publishChange(ctx, ports.ChangeUpdated, winner, ben.ID)

	// Stop lands well inside the debounce window. Once it returns no pass
	// may run anymore, so the group stays untouched.
	runner.Stop()
	time.Sleep(250 * time.Millisecond)

	items, err := svc.ListRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("records = %d after stop, want 2 untouched", len(items))
	}
}

func TestRunnerConvergesAfterDebounce(t *testing.T) {
	svc, _ := setupServiceWithDB(t)
	ctx := context.Background()

	// Seed a group that already holds a winner plus a stale pending sibling,
	// the situation a crashed inline convergence would leave behind.
	winner, err := svc.repo.CreateRecord(ctx, domaindelegation.Record{
		RequesterID:   alice.ID,
		RequesterName: alice.Name,
		DelegateID:    ben.ID,
		DelegateName:  ben.Name,
		DeliveryLabel: "Shoes",
		Window:        testWindow(),
		Original:      testWindow(),
		Status:        domaindelegation.StatusAccepted,
		Code:          newCode(),
	})
	if err != nil {
		t.Fatalf("seed winner: %v", err)
	}
	stale, err := svc.repo.CreateRecord(ctx, domaindelegation.Record{
		RequesterID:   alice.ID,
		RequesterName: alice.Name,
		DelegateID:    chloe.ID,
		DelegateName:  chloe.Name,
		DeliveryLabel: "Shoes",
		Window:        testWindow(),
		Original:      testWindow(),
		Status:        domaindelegation.StatusPending,
		Code:          newCode(),
	})
	if err != nil {
		t.Fatalf("seed stale sibling: %v", err)
	}

	runner := NewRunner(svc, svc.feed, 20*time.Millisecond)
	runner.Start(ctx)
	defer runner.Stop()

	// Any change on the group arms the debounce timer.
	svc.publishChange(ctx, ports.ChangeUpdated, winner, ben.ID)

	deadline := time.After(2 * time.Second)
	for {
		items, err := svc.ListRecords(ctx, alice.ID)
		if err != nil {
			t.Fatalf("list records: %v", err)
		}
		if len(items) == 1 && items[0].Record.ID == winner.ID {
			if _, err := svc.repo.GetRecord(ctx, stale.ID); err == nil {
				t.Fatal("stale sibling still present after convergence")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("group did not converge to a single record, still %d", len(items))
		case <-time.After(10 * time.Millisecond):
		}
	}
}
