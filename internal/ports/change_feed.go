package ports

import "context"

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes one record mutation pushed to subscribers. It carries the
// group coordinates so watchdog clients can converge without re-reading the
// record that may already be gone.
type Change struct {
	Kind          ChangeKind
	RecordID      string
	RequesterID   string
	DelegateID    string
	DeliveryLabel string
	ActorID       string
}

// ChangeFilter limits a subscription. The zero filter receives everything;
// UserID restricts to changes visible to that user (either side).
type ChangeFilter struct {
	UserID string
}

// ChangeFeed is the push-on-change side of the record store contract. Every
// client session subscribes and reacts; publishing never blocks the writer.
type ChangeFeed interface {
	Publish(ctx context.Context, change Change)
	Subscribe(filter ChangeFilter) (<-chan Change, func())
}
