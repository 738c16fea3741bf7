package ports

import (
	"context"
	"errors"

	"doora/internal/domain/delegation"
)

var ErrRecordNotFound = errors.New("delegation record not found")

// RecordFilter narrows ListRecords. Zero-value fields are ignored; by default
// all statuses are returned, cancelled and terminal included, because fan-out
// and the watchdog must see the whole group.
type RecordFilter struct {
	UserID        string // matches either side of the record
	RequesterID   string
	DelegateID    string
	DeliveryLabel string
	Statuses      []delegation.Status
}

// RecordPatch is a partial update; nil fields are left untouched. A single
// patch is applied atomically, mirroring the store's per-document
// read-modify-write guarantee.
type RecordPatch struct {
	Status         *delegation.Status
	Window         *delegation.Window
	Original       *delegation.Window
	Notes          *string
	Rating         *int
	LastEditorName *string
}

type DelegationReadRepository interface {
	ListRecords(ctx context.Context, filter RecordFilter) ([]delegation.Record, error)
	GetRecord(ctx context.Context, recordID string) (delegation.Record, error)
}

type DelegationRepository interface {
	DelegationReadRepository

	// CreateRecord persists the record, assigns its id and writes the
	// initial history events in one transaction.
	CreateRecord(ctx context.Context, record delegation.Record) (delegation.Record, error)

	UpdateRecord(ctx context.Context, recordID string, patch RecordPatch) error

	// AppendHistory is the "append to array" primitive: events already
	// present on the record (same timestamp, action and actor) are skipped,
	// so replaying a salvage merge is safe.
	AppendHistory(ctx context.Context, recordID string, events ...delegation.HistoryEvent) error

	// DeleteRecord removes the record and its history. Deleting a missing id
	// is a benign no-op.
	DeleteRecord(ctx context.Context, recordID string) error
}
