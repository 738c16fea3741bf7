package delegation

import (
	"context"
	"fmt"
	"strings"

	"doora/internal/domain/delegation"
	"doora/internal/ports"
)

// Rate attaches a 1-5 star rating to a completed delivery and tells the
// counterparty. Re-rating overwrites the previous value.
func (s *Service) Rate(ctx context.Context, input RateInput) (delegation.Record, error) {
	if err := s.guard(ctx); err != nil {
		return delegation.Record{}, err
	}
	if input.Stars < 1 || input.Stars > 5 {
		return delegation.Record{}, delegation.ErrRatingRange
	}

	var updated delegation.Record
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		record, err := s.repo.GetRecord(txCtx, strings.TrimSpace(input.RecordID))
		if err != nil {
			return err
		}
		if _, err := record.RoleOf(input.Actor.ID); err != nil {
			return err
		}
		if record.Status != delegation.StatusCompleted {
			return delegation.ErrNotRatable
		}

		stars := input.Stars
		if err := s.repo.UpdateRecord(txCtx, record.ID, ports.RecordPatch{Rating: &stars}); err != nil {
			return err
		}

		event := delegation.HistoryEvent{
			OccurredAt: nowUTC(),
			Action:     delegation.ActionRated,
			ActorID:    input.Actor.ID,
			ActorName:  input.Actor.Name,
			Details:    fmt.Sprintf("%d stars", stars),
		}
		if err := s.repo.AppendHistory(txCtx, record.ID, event); err != nil {
			return err
		}

		record.Rating = stars
		record.History = append(record.History, event)
		updated = record
		return nil
	})
	if err != nil {
		return delegation.Record{}, err
	}

	s.notifyBestEffort(ctx, updated.CounterpartyOf(input.Actor.ID), ports.NotificationInput{
		Title:   "You received a rating",
		Message: fmt.Sprintf("%s rated the delivery of %q with %d stars", input.Actor.Name, updated.DeliveryLabel, input.Stars),
		Kind:    ports.NotifyKindRating,
	})
	s.publishChange(ctx, ports.ChangeUpdated, updated, input.Actor.ID)
	return updated, nil
}
