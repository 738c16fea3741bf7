package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"doora/internal/errs"
	"doora/internal/infrastructure/persistence/sqlite/model"
	"doora/internal/ports"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, userID string, input ports.NotificationInput) (ports.Notification, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Notification{}, err
	}

	now := time.Now().UTC()
	row := model.Notification{
		NotificationID: uuid.NewString(),
		UserID:         userID,
		Title:          input.Title,
		Message:        input.Message,
		Kind:           input.Kind,
		IsRead:         false,
		CreatedAt:      formatTime(now),
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.Notification{}, errs.Wrap(err, "insert notification")
	}
	return mapNotification(row), nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string) ([]ports.Notification, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Notification
	if err := db.
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query notifications")
	}

	items := make([]ports.Notification, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

func (r *NotificationRepository) MarkNotificationsRead(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Notification{}).
		Where("user_id = ? AND notification_id IN ?", userID, ids).
		Update("is_read", true).Error; err != nil {
		return errs.Wrap(err, "mark notifications read")
	}
	return nil
}

func (r *NotificationRepository) DeleteNotification(ctx context.Context, userID string, id string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.
		Where("user_id = ? AND notification_id = ?", userID, id).
		Delete(&model.Notification{}).Error; err != nil {
		return errs.Wrap(err, "delete notification")
	}
	return nil
}

func (r *NotificationRepository) DeleteAllNotifications(ctx context.Context, userID string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.
		Where("user_id = ?", userID).
		Delete(&model.Notification{}).Error; err != nil {
		return errs.Wrap(err, "delete notifications")
	}
	return nil
}

func mapNotification(row model.Notification) ports.Notification {
	return ports.Notification{
		ID:        row.NotificationID,
		UserID:    row.UserID,
		Title:     row.Title,
		Message:   row.Message,
		Kind:      row.Kind,
		IsRead:    row.IsRead,
		CreatedAt: parseTime(row.CreatedAt),
	}
}
