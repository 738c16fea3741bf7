package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"doora/internal/domain/delegation"
	"doora/internal/errs"
	"doora/internal/infrastructure/persistence/sqlite/model"
	"doora/internal/ports"
)

type DelegationRepository struct {
	db *gorm.DB
}

func NewDelegationRepository(db *gorm.DB) *DelegationRepository {
	return &DelegationRepository{db: db}
}

func (r *DelegationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *DelegationRepository) ListRecords(ctx context.Context, filter ports.RecordFilter) ([]delegation.Record, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.DelegationRecord{})
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("requester_id = ? OR delegate_id = ?", userID, userID)
	}
	if requesterID := strings.TrimSpace(filter.RequesterID); requesterID != "" {
		query = query.Where("requester_id = ?", requesterID)
	}
	if delegateID := strings.TrimSpace(filter.DelegateID); delegateID != "" {
		query = query.Where("delegate_id = ?", delegateID)
	}
	if label := strings.TrimSpace(filter.DeliveryLabel); label != "" {
		query = query.Where("delivery_label = ?", label)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}

	var rows []model.DelegationRecord
	if err := query.Order("created_at asc, record_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query delegation records")
	}
	if len(rows) == 0 {
		return []delegation.Record{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.RecordID)
	}

	var eventRows []model.HistoryEvent
	if err := db.
		Where("record_id IN ?", ids).
		Order("event_id asc").
		Find(&eventRows).Error; err != nil {
		return nil, errs.Wrap(err, "query history events")
	}

	eventsByRecord := make(map[string][]delegation.HistoryEvent, len(rows))
	for _, row := range eventRows {
		eventsByRecord[row.RecordID] = append(eventsByRecord[row.RecordID], mapHistoryEvent(row))
	}

	records := make([]delegation.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapRecord(row, eventsByRecord[row.RecordID]))
	}
	return records, nil
}

func (r *DelegationRepository) GetRecord(ctx context.Context, recordID string) (delegation.Record, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return delegation.Record{}, err
	}

	var row model.DelegationRecord
	if err := db.Where("record_id = ?", recordID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return delegation.Record{}, ports.ErrRecordNotFound
		}
		return delegation.Record{}, errs.Wrap(err, "query delegation record")
	}

	var eventRows []model.HistoryEvent
	if err := db.
		Where("record_id = ?", recordID).
		Order("event_id asc").
		Find(&eventRows).Error; err != nil {
		return delegation.Record{}, errs.Wrap(err, "query history events")
	}

	events := make([]delegation.HistoryEvent, 0, len(eventRows))
	for _, eventRow := range eventRows {
		events = append(events, mapHistoryEvent(eventRow))
	}
	return mapRecord(row, events), nil
}

func (r *DelegationRepository) CreateRecord(ctx context.Context, record delegation.Record) (delegation.Record, error) {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return delegation.Record{}, err
		}

		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now

		row := toRecordRow(record)
		if err := db.Create(&row).Error; err != nil {
			return delegation.Record{}, errs.Wrap(err, "insert delegation record")
		}

		if len(record.History) > 0 {
			if err := insertHistory(db, record.ID, record.History); err != nil {
				return delegation.Record{}, err
			}
		}
		return record, nil
	}

	var created delegation.Record
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		rec, err := r.CreateRecord(txCtx, record)
		if err != nil {
			return err
		}
		created = rec
		return nil
	}); err != nil {
		return delegation.Record{}, err
	}
	return created, nil
}

func (r *DelegationRepository) UpdateRecord(ctx context.Context, recordID string, patch ports.RecordPatch) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	values := map[string]any{
		"updated_at": formatTime(time.Now().UTC()),
	}
	if patch.Status != nil {
		values["status"] = string(*patch.Status)
	}
	if patch.Window != nil {
		values["window_date"] = patch.Window.Date
		values["window_from"] = patch.Window.From
		values["window_to"] = patch.Window.To
	}
	if patch.Original != nil {
		values["original_date"] = patch.Original.Date
		values["original_from"] = patch.Original.From
		values["original_to"] = patch.Original.To
	}
	if patch.Notes != nil {
		values["notes"] = *patch.Notes
	}
	if patch.Rating != nil {
		values["rating"] = *patch.Rating
	}
	if patch.LastEditorName != nil {
		values["last_editor_name"] = *patch.LastEditorName
	}

	result := db.Model(&model.DelegationRecord{}).
		Where("record_id = ?", recordID).
		Updates(values)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update delegation record")
	}
	if result.RowsAffected == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

func (r *DelegationRepository) AppendHistory(ctx context.Context, recordID string, events ...delegation.HistoryEvent) error {
	if len(events) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	return insertHistory(db, recordID, events)
}

func (r *DelegationRepository) DeleteRecord(ctx context.Context, recordID string) error {
	if ports.TxFromContext(ctx) != nil {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return err
		}

		if err := db.Where("record_id = ?", recordID).Delete(&model.HistoryEvent{}).Error; err != nil {
			return errs.Wrap(err, "delete history events")
		}
		// Deleting a missing record is a benign no-op: concurrent watchdog
		// passes race to remove the same losers.
		if err := db.Where("record_id = ?", recordID).Delete(&model.DelegationRecord{}).Error; err != nil {
			return errs.Wrap(err, "delete delegation record")
		}
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.DeleteRecord(ports.WithTxContext(ctx, tx), recordID)
	})
}

func insertHistory(db *gorm.DB, recordID string, events []delegation.HistoryEvent) error {
	rows := make([]model.HistoryEvent, 0, len(events))
	for _, e := range events {
		rows = append(rows, model.HistoryEvent{
			RecordID:   recordID,
			OccurredAt: formatTime(e.OccurredAt),
			Action:     string(e.Action),
			ActorID:    e.ActorID,
			ActorName:  e.ActorName,
			Details:    e.Details,
		})
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert history events")
	}
	return nil
}

func toRecordRow(record delegation.Record) model.DelegationRecord {
	return model.DelegationRecord{
		RecordID:       record.ID,
		RequesterID:    record.RequesterID,
		RequesterName:  record.RequesterName,
		DelegateID:     record.DelegateID,
		DelegateName:   record.DelegateName,
		DeliveryLabel:  record.DeliveryLabel,
		WindowDate:     record.Window.Date,
		WindowFrom:     record.Window.From,
		WindowTo:       record.Window.To,
		OriginalDate:   record.Original.Date,
		OriginalFrom:   record.Original.From,
		OriginalTo:     record.Original.To,
		Status:         string(record.Status),
		Notes:          record.Notes,
		Code:           record.Code,
		Rating:         record.Rating,
		LastEditorName: record.LastEditorName,
		CreatedAt:      formatTime(record.CreatedAt),
		UpdatedAt:      formatTime(record.UpdatedAt),
	}
}

func mapRecord(row model.DelegationRecord, events []delegation.HistoryEvent) delegation.Record {
	return delegation.Record{
		ID:            row.RecordID,
		RequesterID:   row.RequesterID,
		RequesterName: row.RequesterName,
		DelegateID:    row.DelegateID,
		DelegateName:  row.DelegateName,
		DeliveryLabel: row.DeliveryLabel,
		Window: delegation.Window{
			Date: row.WindowDate,
			From: row.WindowFrom,
			To:   row.WindowTo,
		},
		Original: delegation.Window{
			Date: row.OriginalDate,
			From: row.OriginalFrom,
			To:   row.OriginalTo,
		},
		Status:         delegation.Status(row.Status),
		Notes:          row.Notes,
		Code:           row.Code,
		Rating:         row.Rating,
		LastEditorName: row.LastEditorName,
		History:        events,
		CreatedAt:      parseTime(row.CreatedAt),
		UpdatedAt:      parseTime(row.UpdatedAt),
	}
}

func mapHistoryEvent(row model.HistoryEvent) delegation.HistoryEvent {
	return delegation.HistoryEvent{
		OccurredAt: parseTime(row.OccurredAt),
		Action:     delegation.Action(row.Action),
		ActorID:    row.ActorID,
		ActorName:  row.ActorName,
		Details:    row.Details,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
