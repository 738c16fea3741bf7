package delegation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"doora/internal/bootstrap/logging"
	"doora/internal/domain/delegation"
	"doora/internal/metrics"
	"doora/internal/ports"
)

// CreateFanOut creates or reactivates one record per requested delegate. Each
// (requester, delegate, delivery) triple holds at most one record: an existing
// record of any status is reused and reset to pending instead of duplicated.
// A failure on one delegate does not abort the others.
func (s *Service) CreateFanOut(ctx context.Context, input FanOutInput) (FanOutResult, error) {
	var result FanOutResult

	if err := s.guard(ctx); err != nil {
		return result, err
	}

	requesterID := strings.TrimSpace(input.Requester.ID)
	if requesterID == "" {
		return result, delegation.ErrRequesterRequired
	}
	if len(input.Delegates) == 0 {
		return result, delegation.ErrNoDelegates
	}
	if err := input.Window.Validate(); err != nil {
		return result, err
	}

	label := strings.TrimSpace(input.DeliveryLabel)
	if label == "" {
		label = delegation.DefaultDeliveryLabel
	}
	notes := strings.TrimSpace(input.Notes)

	seen := make(map[string]bool, len(input.Delegates))
	for _, d := range input.Delegates {
		delegateID := strings.TrimSpace(d.ID)
		if delegateID == "" {
			return result, delegation.ErrDelegateRequired
		}
		if delegateID == requesterID {
			return result, fmt.Errorf("delegate %s: requester cannot delegate to themselves", delegateID)
		}
		if seen[delegateID] {
			continue
		}
		seen[delegateID] = true

		record, reactivated, err := s.upsertDelegateRecord(ctx, upsertInput{
			Requester:     input.Requester,
			Delegate:      DelegateInput{ID: delegateID, Name: strings.TrimSpace(d.Name)},
			DeliveryLabel: label,
			Window:        input.Window,
			Notes:         notes,
		})
		if err != nil {
			logging.Error(ctx, "fan-out delegate failed",
				slog.String("requester_id", requesterID),
				slog.String("delegate_id", delegateID),
				slog.Any("err", err),
			)
			continue
		}

		if reactivated {
			result.Reactivated = append(result.Reactivated, record)
			metrics.RecordsReactivatedTotal.Inc()
			s.notifyBestEffort(ctx, record.DelegateID, ports.NotificationInput{
				Title:   "Package request renewed",
				Message: fmt.Sprintf("%s asked you again to receive %q (%s)", record.RequesterName, record.DeliveryLabel, record.Window.Summary()),
				Kind:    ports.NotifyKindRequestReactivated,
			})
			s.publishChange(ctx, ports.ChangeUpdated, record, requesterID)
		} else {
			result.Created = append(result.Created, record)
			metrics.RecordsCreatedTotal.Inc()
			s.notifyBestEffort(ctx, record.DelegateID, ports.NotificationInput{
				Title:   "New package request",
				Message: fmt.Sprintf("%s asked you to receive %q (%s)", record.RequesterName, record.DeliveryLabel, record.Window.Summary()),
				Kind:    ports.NotifyKindRequestCreated,
			})
			s.publishChange(ctx, ports.ChangeCreated, record, requesterID)
		}
	}

	if len(result.Created) == 0 && len(result.Reactivated) == 0 {
		return result, fmt.Errorf("fan-out failed for all %d delegates", len(seen))
	}

	metrics.FanOutsTotal.Inc()
	return result, nil
}

// AddDelegates widens an existing delivery group with more delegates, reusing
// the source record's window, notes and label. Only the requester may widen.
func (s *Service) AddDelegates(ctx context.Context, input AddDelegatesInput) (FanOutResult, error) {
	if err := s.guard(ctx); err != nil {
		return FanOutResult{}, err
	}

	source, err := s.repo.GetRecord(ctx, strings.TrimSpace(input.SourceRecordID))
	if err != nil {
		return FanOutResult{}, err
	}
	if input.Actor.ID != source.RequesterID {
		return FanOutResult{}, delegation.ErrNotParticipant
	}

	return s.CreateFanOut(ctx, FanOutInput{
		Requester:     Actor{ID: source.RequesterID, Name: source.RequesterName},
		DeliveryLabel: source.DeliveryLabel,
		Window:        source.Window,
		Notes:         source.Notes,
		Delegates:     input.Delegates,
	})
}

type upsertInput struct {
	Requester     Actor
	Delegate      DelegateInput
	DeliveryLabel string
	Window        delegation.Window
	Notes         string
}

// upsertDelegateRecord runs the create-or-reactivate decision inside one
// transaction so two concurrent fan-outs cannot both insert the same triple.
func (s *Service) upsertDelegateRecord(ctx context.Context, input upsertInput) (delegation.Record, bool, error) {
	var (
		record      delegation.Record
		reactivated bool
	)

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListRecords(txCtx, ports.RecordFilter{
			RequesterID:   input.Requester.ID,
			DelegateID:    input.Delegate.ID,
			DeliveryLabel: input.DeliveryLabel,
		})
		if err != nil {
			return err
		}

		now := nowUTC()

		if len(existing) > 0 {
			current := existing[0]
			patch := ports.RecordPatch{
				Status:   statusPtr(delegation.StatusPending),
				Window:   &input.Window,
				Original: &input.Window,
				Notes:    strPtr(input.Notes),
			}
			if err := s.repo.UpdateRecord(txCtx, current.ID, patch); err != nil {
				return err
			}
			event := delegation.HistoryEvent{
				OccurredAt: now,
				Action:     delegation.ActionReactivated,
				ActorID:    input.Requester.ID,
				ActorName:  input.Requester.Name,
				Details:    input.Window.Summary(),
			}
			if err := s.repo.AppendHistory(txCtx, current.ID, event); err != nil {
				return err
			}

			current.Status = delegation.StatusPending
			current.Window = input.Window
			current.Original = input.Window
			current.Notes = input.Notes
			current.History = append(current.History, event)
			current.UpdatedAt = now

			record = current
			reactivated = true
			return nil
		}

		created, err := s.repo.CreateRecord(txCtx, delegation.Record{
			RequesterID:   input.Requester.ID,
			RequesterName: input.Requester.Name,
			DelegateID:    input.Delegate.ID,
			DelegateName:  input.Delegate.Name,
			DeliveryLabel: input.DeliveryLabel,
			Window:        input.Window,
			Original:      input.Window,
			Status:        delegation.StatusPending,
			Notes:         input.Notes,
			Code:          newCode(),
			History: []delegation.HistoryEvent{{
				OccurredAt: now,
				Action:     delegation.ActionCreated,
				ActorID:    input.Requester.ID,
				ActorName:  input.Requester.Name,
				Details:    input.Window.Summary(),
			}},
		})
		if err != nil {
			return err
		}

		record = created
		return nil
	})
	if err != nil {
		return delegation.Record{}, false, err
	}
	return record, reactivated, nil
}
