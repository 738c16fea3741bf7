package delegation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"doora/internal/bootstrap/logging"
	"doora/internal/domain/delegation"
	"doora/internal/metrics"
	"doora/internal/ports"
)

type Service struct {
	repo      ports.DelegationRepository
	notifRepo ports.NotificationRepository
	uow       ports.UnitOfWork
	feed      ports.ChangeFeed
	notifier  ports.Notifier
	stats     ports.ProfileStats
}

// NewService wires the delegation lifecycle usecases. Feed, notifier and
// stats are side channels; their failures never roll back a committed write.
func NewService(
	repo ports.DelegationRepository,
	notifRepo ports.NotificationRepository,
	uow ports.UnitOfWork,
	feed ports.ChangeFeed,
	notifier ports.Notifier,
	stats ports.ProfileStats,
) *Service {
	return &Service{
		repo:      repo,
		notifRepo: notifRepo,
		uow:       uow,
		feed:      feed,
		notifier:  notifier,
		stats:     stats,
	}
}

type Actor struct {
	ID   string
	Name string
}

type DelegateInput struct {
	ID   string
	Name string
}

type FanOutInput struct {
	Requester     Actor
	DeliveryLabel string
	Window        delegation.Window
	Notes         string
	Delegates     []DelegateInput
}

type FanOutResult struct {
	Created     []delegation.Record
	Reactivated []delegation.Record
}

type AddDelegatesInput struct {
	SourceRecordID string
	Actor          Actor
	Delegates      []DelegateInput
}

type TransitionInput struct {
	RecordID string
	Actor    Actor
}

type ProposeInput struct {
	RecordID string
	Actor    Actor
	Window   delegation.Window
}

type EditWindowInput struct {
	RecordID   string
	Actor      Actor
	Window     delegation.Window
	Notes      *string
	AsProposal bool
}

type RateInput struct {
	RecordID string
	Actor    Actor
	Stars    int
}

func (s *Service) guard(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.repo == nil {
		return errors.New("delegation repository is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

func (s *Service) notifyBestEffort(ctx context.Context, targetUserID string, input ports.NotificationInput) {
	if s.notifier == nil || targetUserID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, targetUserID, input); err != nil {
		logging.Warn(ctx, "notification failed",
			slog.String("user_id", targetUserID),
			slog.String("kind", input.Kind),
			slog.Any("err", err),
		)
		return
	}
	metrics.NotificationsSentTotal.Inc()
}

func (s *Service) publishChange(ctx context.Context, kind ports.ChangeKind, record delegation.Record, actorID string) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, ports.Change{
		Kind:          kind,
		RecordID:      record.ID,
		RequesterID:   record.RequesterID,
		DelegateID:    record.DelegateID,
		DeliveryLabel: record.DeliveryLabel,
		ActorID:       actorID,
	})
}

func (s *Service) bumpCounterBestEffort(ctx context.Context, userID string, counter string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.IncrementCounter(ctx, userID, counter); err != nil {
		logging.Warn(ctx, "profile counter update failed",
			slog.String("user_id", userID),
			slog.String("counter", counter),
			slog.Any("err", err),
		)
	}
}

// newCode derives a short human-readable pickup code.
func newCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:6]
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func statusPtr(s delegation.Status) *delegation.Status { return &s }

func strPtr(s string) *string { return &s }
