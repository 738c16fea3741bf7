package delegation

import (
	"context"
	"fmt"
	"strings"

	"doora/internal/domain/delegation"
	"doora/internal/metrics"
	"doora/internal/ports"
)

// EditWindow rewrites the pickup window of a still-open record.
//
// A plain edit always puts the record back to pending, so a rewritten window
// must be agreed to again by the other side. Editing a CANCELLED record
// reactivates it: status returns to pending and the edit is recorded as a
// reactivation, not an update. Editing with AsProposal set turns the record
// into a counter-proposal instead.
func (s *Service) EditWindow(ctx context.Context, input EditWindowInput) (delegation.Record, error) {
	if err := s.guard(ctx); err != nil {
		return delegation.Record{}, err
	}
	if err := input.Window.Validate(); err != nil {
		return delegation.Record{}, err
	}

	var (
		updated delegation.Record
		action  delegation.Action
	)
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		record, err := s.repo.GetRecord(txCtx, strings.TrimSpace(input.RecordID))
		if err != nil {
			return err
		}
		role, err := record.RoleOf(input.Actor.ID)
		if err != nil {
			return err
		}
		if !record.Status.Editable() {
			return delegation.ErrNotEditable
		}

		status := record.Status
		original := record.Window

		switch {
		case record.Status == delegation.StatusCancelled:
			if err := delegation.CanTransition(delegation.StatusCancelled, delegation.StatusPending, role); err != nil {
				return err
			}
			status = delegation.StatusPending
			original = input.Window // a fresh request carries no prior window
			action = delegation.ActionReactivated
		case input.AsProposal:
			if err := delegation.CanTransition(record.Status, delegation.StatusProposal, role); err != nil {
				return err
			}
			status = delegation.StatusProposal
			action = delegation.ActionProposed
		default:
			// A plain edit voids any standing counter-proposal: the new
			// window needs the delegate's agreement again, so the record
			// returns to pending.
			status = delegation.StatusPending
			action = delegation.ActionUpdated
		}

		patch := ports.RecordPatch{
			Status:         statusPtr(status),
			Window:         &input.Window,
			Original:       &original,
			LastEditorName: strPtr(input.Actor.Name),
		}
		if input.Notes != nil {
			patch.Notes = strPtr(strings.TrimSpace(*input.Notes))
		}
		if err := s.repo.UpdateRecord(txCtx, record.ID, patch); err != nil {
			return err
		}

		event := delegation.HistoryEvent{
			OccurredAt: nowUTC(),
			Action:     action,
			ActorID:    input.Actor.ID,
			ActorName:  input.Actor.Name,
			Details:    input.Window.Summary(),
		}
		if err := s.repo.AppendHistory(txCtx, record.ID, event); err != nil {
			return err
		}

		record.Status = status
		record.Original = original
		record.Window = input.Window
		record.LastEditorName = input.Actor.Name
		if patch.Notes != nil {
			record.Notes = *patch.Notes
		}
		record.History = append(record.History, event)
		updated = record
		return nil
	})
	if err != nil {
		return delegation.Record{}, err
	}

	kind := ports.NotifyKindRequestUpdated
	title := "Request updated"
	switch action {
	case delegation.ActionReactivated:
		metrics.RecordsReactivatedTotal.Inc()
		kind = ports.NotifyKindRequestReactivated
		title = "Package request renewed"
	case delegation.ActionProposed:
		metrics.TransitionsTotal.WithLabelValues(string(delegation.StatusProposal)).Inc()
		kind = ports.NotifyKindProposal
		title = "New time proposed"
	}

	s.notifyBestEffort(ctx, updated.CounterpartyOf(input.Actor.ID), ports.NotificationInput{
		Title:   title,
		Message: fmt.Sprintf("%s set %s for %q", input.Actor.Name, input.Window.Summary(), updated.DeliveryLabel),
		Kind:    kind,
	})
	s.publishChange(ctx, ports.ChangeUpdated, updated, input.Actor.ID)
	return updated, nil
}
