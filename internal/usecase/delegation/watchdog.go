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

// ConvergeGroup enforces the one-winner invariant on a delivery group. When a
// record in the group has been accepted (or is further along), every other
// sibling that has not itself finished is removed. Before a loser disappears
// its history is merged onto the winner, and its delegate is told the request
// is closed unless that delegate caused the convergence themselves.
//
// The pass is idempotent: re-running it after a partial failure deletes
// nothing new and the history merge skips events already present.
func (s *Service) ConvergeGroup(ctx context.Context, requesterID, deliveryLabel, actingUserID string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	requesterID = strings.TrimSpace(requesterID)
	deliveryLabel = strings.TrimSpace(deliveryLabel)
	if requesterID == "" || deliveryLabel == "" {
		return nil
	}

	metrics.WatchdogRunsTotal.Inc()

	group, err := s.repo.ListRecords(ctx, ports.RecordFilter{
		RequesterID:   requesterID,
		DeliveryLabel: deliveryLabel,
	})
	if err != nil {
		return err
	}

	winner, ok := delegation.FindWinner(group)
	if !ok {
		return nil
	}
	losers := delegation.Losers(group, winner.ID)
	if len(losers) == 0 {
		return nil
	}

	salvaged := make([][]delegation.HistoryEvent, 0, len(losers))
	for _, loser := range losers {
		if loser.DelegateID != actingUserID {
			s.notifyBestEffort(ctx, loser.DelegateID, ports.NotificationInput{
				Title:   "Request closed",
				Message: fmt.Sprintf("Another neighbor is taking care of %q", loser.DeliveryLabel),
				Kind:    ports.NotifyKindRequestClosed,
			})
		}

		if err := s.repo.DeleteRecord(ctx, loser.ID); err != nil {
			logging.Error(ctx, "failed to remove losing record",
				slog.String("record_id", loser.ID),
				slog.Any("err", err),
			)
			continue
		}

		salvaged = append(salvaged, loser.History)
		metrics.LosersRemovedTotal.Inc()
		s.publishChange(ctx, ports.ChangeDeleted, loser, actingUserID)
	}

	events := delegation.MergeHistories(nil, salvaged...)
	if len(events) > 0 {
		if err := s.repo.AppendHistory(ctx, winner.ID, events...); err != nil {
			return err
		}
		metrics.HistorySalvagedTotal.Add(float64(len(events)))
		s.publishChange(ctx, ports.ChangeUpdated, winner, actingUserID)
	}

	logging.Info(ctx, "delivery group converged",
		slog.String("requester_id", requesterID),
		slog.String("delivery_label", deliveryLabel),
		slog.String("winner_id", winner.ID),
		slog.Int("losers_removed", len(salvaged)),
	)
	return nil
}
