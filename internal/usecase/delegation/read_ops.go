package delegation

import (
	"context"
	"errors"
	"strings"

	"doora/internal/domain/delegation"
	"doora/internal/ports"
)

// Direction labels a record relative to the viewer.
type Direction string

const (
	DirectionIncoming Direction = "incoming" // viewer is the delegate
	DirectionOutgoing Direction = "outgoing" // viewer is the requester
)

type RecordListItem struct {
	Record    delegation.Record
	Direction Direction
}

// ListRecords returns the records visible to a user, on either side.
// Cancelled records stay visible to the requester, who needs to see the
// refusal, but are hidden from the delegate who declined.
func (s *Service) ListRecords(ctx context.Context, userID string) ([]RecordListItem, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	records, err := s.repo.ListRecords(ctx, ports.RecordFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	items := make([]RecordListItem, 0, len(records))
	for _, record := range records {
		direction := DirectionOutgoing
		if record.DelegateID == userID {
			direction = DirectionIncoming
			if record.Status == delegation.StatusCancelled {
				continue
			}
		}
		items = append(items, RecordListItem{Record: record, Direction: direction})
	}
	return items, nil
}

// GetRecord fetches a single record, restricted to its participants.
func (s *Service) GetRecord(ctx context.Context, recordID, viewerID string) (delegation.Record, error) {
	if err := s.guard(ctx); err != nil {
		return delegation.Record{}, err
	}

	record, err := s.repo.GetRecord(ctx, strings.TrimSpace(recordID))
	if err != nil {
		return delegation.Record{}, err
	}
	if _, err := record.RoleOf(viewerID); err != nil {
		return delegation.Record{}, err
	}
	return record, nil
}

type GroupHistoryInput struct {
	RecordID string
	ViewerID string
}

// GroupHistory renders the audit trail for the record's delivery group.
//
// The requester sees the whole group's merged history. A delegate sees only
// the record they are part of, filtered to their own and the requester's
// events, so salvaged history of other delegates stays private.
func (s *Service) GroupHistory(ctx context.Context, input GroupHistoryInput) ([]delegation.HistoryEvent, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	record, err := s.repo.GetRecord(ctx, strings.TrimSpace(input.RecordID))
	if err != nil {
		return nil, err
	}
	role, err := record.RoleOf(input.ViewerID)
	if err != nil {
		return nil, err
	}

	if role == delegation.RoleDelegate {
		return delegation.DisplayHistory(record.History, input.ViewerID, record.RequesterID), nil
	}

	group, err := s.repo.ListRecords(ctx, ports.RecordFilter{
		RequesterID:   record.RequesterID,
		DeliveryLabel: record.DeliveryLabel,
	})
	if err != nil {
		return nil, err
	}

	events := make([]delegation.HistoryEvent, 0, len(record.History))
	for _, sibling := range group {
		events = delegation.MergeHistories(events, sibling.History)
	}
	return delegation.DisplayHistory(events, input.ViewerID, record.RequesterID), nil
}

// Notifications returns the user's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string) ([]ports.Notification, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if s.notifRepo == nil {
		return nil, errors.New("notification repository is required")
	}
	return s.notifRepo.ListNotifications(ctx, strings.TrimSpace(userID))
}

func (s *Service) MarkNotificationsRead(ctx context.Context, userID string, ids []string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if s.notifRepo == nil {
		return errors.New("notification repository is required")
	}
	return s.notifRepo.MarkNotificationsRead(ctx, strings.TrimSpace(userID), ids)
}

func (s *Service) DeleteNotification(ctx context.Context, userID, id string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if s.notifRepo == nil {
		return errors.New("notification repository is required")
	}
	return s.notifRepo.DeleteNotification(ctx, strings.TrimSpace(userID), id)
}

func (s *Service) ClearNotifications(ctx context.Context, userID string) error {
	if err := s.guard(ctx); err != nil {
		return err
	}
	if s.notifRepo == nil {
		return errors.New("notification repository is required")
	}
	return s.notifRepo.DeleteAllNotifications(ctx, strings.TrimSpace(userID))
}
