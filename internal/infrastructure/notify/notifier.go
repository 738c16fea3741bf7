package notify

import (
	"context"
	"errors"
	"log/slog"

	"doora/internal/bootstrap/logging"
	"doora/internal/ports"
)

// Notifier delivers notifications by persisting them for the target user.
// Delivery transports (push, mail) would hang off this same interface.
type Notifier struct {
	repo ports.NotificationRepository
}

func NewNotifier(repo ports.NotificationRepository) *Notifier {
	return &Notifier{repo: repo}
}

func (n *Notifier) Notify(ctx context.Context, targetUserID string, input ports.NotificationInput) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if targetUserID == "" {
		return errors.New("target user id is required")
	}

	notification, err := n.repo.CreateNotification(ctx, targetUserID, input)
	if err != nil {
		return err
	}

	logging.Info(ctx, "notification stored",
		slog.String("notification_id", notification.ID),
		slog.String("user_id", targetUserID),
		slog.String("kind", input.Kind),
	)
	return nil
}
