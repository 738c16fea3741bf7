package ports

import (
	"context"
	"time"
)

// Notification kinds, mirroring the engine's side-effect catalogue.
const (
	NotifyKindRequestCreated     = "request_created"
	NotifyKindRequestReactivated = "request_reactivated"
	NotifyKindRequestAccepted    = "request_accepted"
	NotifyKindProposal           = "proposal"
	NotifyKindRequestRejected    = "request_rejected"
	NotifyKindRequestUpdated     = "request_updated"
	NotifyKindRequestClosed      = "request_closed" // loser displaced by a winner
	NotifyKindPackageCollected   = "package_collected"
	NotifyKindPackageCompleted   = "package_completed"
	NotifyKindRating             = "rating"
)

type NotificationInput struct {
	Title   string
	Message string
	Kind    string
}

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Kind      string
	IsRead    bool
	CreatedAt time.Time
}

// Notifier is the fire-and-forget user notification side channel.
type Notifier interface {
	Notify(ctx context.Context, targetUserID string, input NotificationInput) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, userID string, input NotificationInput) (Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string) error
	DeleteNotification(ctx context.Context, userID string, id string) error
	DeleteAllNotifications(ctx context.Context, userID string) error
}
