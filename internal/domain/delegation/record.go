package delegation

import "time"

// DefaultDeliveryLabel groups records whose requester did not name the delivery.
const DefaultDeliveryLabel = "Delivery"

// Action is the human-meaningful kind of a history event.
type Action string

const (
	ActionCreated          Action = "created"
	ActionReactivated      Action = "reactivated"
	ActionAccepted         Action = "accepted"
	ActionProposalAccepted Action = "proposal_accepted"
	ActionProposed         Action = "proposed"
	ActionRejected         Action = "rejected"
	ActionCollected        Action = "collected"
	ActionCompleted        Action = "completed"
	ActionUpdated          Action = "updated"
	ActionRated            Action = "rated"
)

// broadcast actions are emitted once per delegate record by a single fan-out
// style operation and collapse to one entry at display time.
func (a Action) broadcast() bool {
	return a == ActionCreated || a == ActionReactivated || a == ActionUpdated
}

// HistoryEvent is an immutable audit fact appended to a record.
type HistoryEvent struct {
	OccurredAt time.Time
	Action     Action
	ActorID    string
	ActorName  string
	Details    string
}

// Record is one requester-delegate pairing for one delivery.
type Record struct {
	ID            string
	RequesterID   string
	RequesterName string
	DelegateID    string
	DelegateName  string
	DeliveryLabel string

	Window   Window
	Original Window // pre-edit window, kept for "what changed" display

	Status         Status
	Notes          string
	Code           string
	Rating         int // 0 = unrated
	LastEditorName string

	History []HistoryEvent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupKey identifies the delivery group a record belongs to.
type GroupKey struct {
	RequesterID   string
	DeliveryLabel string
}

func (r Record) GroupKey() GroupKey {
	return GroupKey{RequesterID: r.RequesterID, DeliveryLabel: r.DeliveryLabel}
}

// RoleOf resolves which side of the record the actor is on.
func (r Record) RoleOf(actorID string) (Role, error) {
	switch actorID {
	case r.RequesterID:
		return RoleRequester, nil
	case r.DelegateID:
		return RoleDelegate, nil
	}
	return "", ErrNotParticipant
}

// CounterpartyOf returns the other participant's user id.
func (r Record) CounterpartyOf(actorID string) string {
	if actorID == r.RequesterID {
		return r.DelegateID
	}
	return r.RequesterID
}
