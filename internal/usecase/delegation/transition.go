package delegation

import (
	"context"
	"fmt"
	"strings"

	"doora/internal/domain/delegation"
	"doora/internal/metrics"
	"doora/internal/ports"
)

// Accept moves a record into ACCEPTED. A delegate accepts a pending request;
// either side may accept a counter-proposal. Acceptance claims the delivery
// group, so convergence runs immediately afterwards.
func (s *Service) Accept(ctx context.Context, input TransitionInput) (delegation.Record, error) {
	record, err := s.transition(ctx, input, delegation.StatusAccepted, func(record delegation.Record, role delegation.Role) (delegation.Action, string) {
		if record.Status == delegation.StatusProposal {
			return delegation.ActionProposalAccepted, record.Window.Summary()
		}
		return delegation.ActionAccepted, ""
	})
	if err != nil {
		return delegation.Record{}, err
	}

	s.notifyBestEffort(ctx, record.CounterpartyOf(input.Actor.ID), ports.NotificationInput{
		Title:   "Request accepted",
		Message: fmt.Sprintf("%q will be received by %s (%s)", record.DeliveryLabel, record.DelegateName, record.Window.Summary()),
		Kind:    ports.NotifyKindRequestAccepted,
	})
	s.publishChange(ctx, ports.ChangeUpdated, record, input.Actor.ID)

	// Converge inline so the winner's siblings disappear without waiting for
	// the debounced watchdog pass.
	if err := s.ConvergeGroup(ctx, record.RequesterID, record.DeliveryLabel, input.Actor.ID); err != nil {
		return delegation.Record{}, err
	}
	return s.repo.GetRecord(ctx, record.ID)
}

// Propose turns a pending request into a delegate counter-proposal with a
// different pickup window. The requester's window is kept as Original.
func (s *Service) Propose(ctx context.Context, input ProposeInput) (delegation.Record, error) {
	if err := s.guard(ctx); err != nil {
		return delegation.Record{}, err
	}
	if err := input.Window.Validate(); err != nil {
		return delegation.Record{}, err
	}

	var updated delegation.Record
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		record, err := s.repo.GetRecord(txCtx, strings.TrimSpace(input.RecordID))
		if err != nil {
			return err
		}
		role, err := record.RoleOf(input.Actor.ID)
		if err != nil {
			return err
		}
		if err := delegation.CanTransition(record.Status, delegation.StatusProposal, role); err != nil {
			return err
		}

		prior := record.Window
		if err := s.repo.UpdateRecord(txCtx, record.ID, ports.RecordPatch{
			Status:         statusPtr(delegation.StatusProposal),
			Window:         &input.Window,
			Original:       &prior,
			LastEditorName: strPtr(input.Actor.Name),
		}); err != nil {
			return err
		}

		event := delegation.HistoryEvent{
			OccurredAt: nowUTC(),
			Action:     delegation.ActionProposed,
			ActorID:    input.Actor.ID,
			ActorName:  input.Actor.Name,
			Details:    input.Window.Summary(),
		}
		if err := s.repo.AppendHistory(txCtx, record.ID, event); err != nil {
			return err
		}

		record.Status = delegation.StatusProposal
		record.Original = prior
		record.Window = input.Window
		record.LastEditorName = input.Actor.Name
		record.History = append(record.History, event)
		updated = record
		return nil
	})
	if err != nil {
		return delegation.Record{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(delegation.StatusProposal)).Inc()
	s.notifyBestEffort(ctx, updated.CounterpartyOf(input.Actor.ID), ports.NotificationInput{
		Title:   "New time proposed",
		Message: fmt.Sprintf("%s proposed %s for %q", input.Actor.Name, input.Window.Summary(), updated.DeliveryLabel),
		Kind:    ports.NotifyKindProposal,
	})
	s.publishChange(ctx, ports.ChangeUpdated, updated, input.Actor.ID)
	return updated, nil
}

// Decline cancels a request from the delegate side. The record is kept so the
// requester still sees the refusal; the delegate's list hides it.
func (s *Service) Decline(ctx context.Context, input TransitionInput) (delegation.Record, error) {
	record, err := s.transition(ctx, input, delegation.StatusCancelled, func(delegation.Record, delegation.Role) (delegation.Action, string) {
		return delegation.ActionRejected, ""
	})
	if err != nil {
		return delegation.Record{}, err
	}

	s.notifyBestEffort(ctx, record.RequesterID, ports.NotificationInput{
		Title:   "Request declined",
		Message: fmt.Sprintf("%s cannot receive %q", record.DelegateName, record.DeliveryLabel),
		Kind:    ports.NotifyKindRequestRejected,
	})
	s.publishChange(ctx, ports.ChangeUpdated, record, input.Actor.ID)
	return record, nil
}

// MarkCollected records that the delegate holds the package. This bumps the
// delegate's helper counters and is irreversible.
func (s *Service) MarkCollected(ctx context.Context, input TransitionInput) (delegation.Record, error) {
	record, err := s.transition(ctx, input, delegation.StatusCollected, func(delegation.Record, delegation.Role) (delegation.Action, string) {
		return delegation.ActionCollected, ""
	})
	if err != nil {
		return delegation.Record{}, err
	}

	s.bumpCounterBestEffort(ctx, record.DelegateID, ports.CounterPackagesCollected)
	s.bumpCounterBestEffort(ctx, record.DelegateID, ports.CounterNeighborsHelped)
	s.notifyBestEffort(ctx, record.RequesterID, ports.NotificationInput{
		Title:   "Package collected",
		Message: fmt.Sprintf("%s has your package %q", record.DelegateName, record.DeliveryLabel),
		Kind:    ports.NotifyKindPackageCollected,
	})
	s.publishChange(ctx, ports.ChangeUpdated, record, input.Actor.ID)
	return record, nil
}

// MarkCompleted records the hand-over to the requester, closing the delivery.
func (s *Service) MarkCompleted(ctx context.Context, input TransitionInput) (delegation.Record, error) {
	record, err := s.transition(ctx, input, delegation.StatusCompleted, func(delegation.Record, delegation.Role) (delegation.Action, string) {
		return delegation.ActionCompleted, ""
	})
	if err != nil {
		return delegation.Record{}, err
	}

	s.bumpCounterBestEffort(ctx, record.RequesterID, ports.CounterPackagesDelegated)
	s.notifyBestEffort(ctx, record.DelegateID, ports.NotificationInput{
		Title:   "Delivery completed",
		Message: fmt.Sprintf("%s confirmed receiving %q, thank you for helping", record.RequesterName, record.DeliveryLabel),
		Kind:    ports.NotifyKindPackageCompleted,
	})
	s.publishChange(ctx, ports.ChangeUpdated, record, input.Actor.ID)
	return record, nil
}

// transition applies one validated state-machine edge and its history event
// inside a transaction.
func (s *Service) transition(
	ctx context.Context,
	input TransitionInput,
	to delegation.Status,
	describe func(delegation.Record, delegation.Role) (delegation.Action, string),
) (delegation.Record, error) {
	if err := s.guard(ctx); err != nil {
		return delegation.Record{}, err
	}

	var updated delegation.Record
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		record, err := s.repo.GetRecord(txCtx, strings.TrimSpace(input.RecordID))
		if err != nil {
			return err
		}
		role, err := record.RoleOf(input.Actor.ID)
		if err != nil {
			return err
		}
		if err := delegation.CanTransition(record.Status, to, role); err != nil {
			return err
		}

		action, details := describe(record, role)

		if err := s.repo.UpdateRecord(txCtx, record.ID, ports.RecordPatch{Status: statusPtr(to)}); err != nil {
			return err
		}

		event := delegation.HistoryEvent{
			OccurredAt: nowUTC(),
			Action:     action,
			ActorID:    input.Actor.ID,
			ActorName:  input.Actor.Name,
			Details:    details,
		}
		if err := s.repo.AppendHistory(txCtx, record.ID, event); err != nil {
			return err
		}

		record.Status = to
		record.History = append(record.History, event)
		updated = record
		return nil
	})
	if err != nil {
		return delegation.Record{}, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	return updated, nil
}
