package delegation

import "errors"

var (
	ErrInvalidStatus     = errors.New("invalid delegation status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrWrongActor        = errors.New("actor not allowed for transition")
	ErrNotParticipant    = errors.New("actor is not a participant of this record")
	ErrNotEditable       = errors.New("record window is no longer editable")
	ErrNotRatable        = errors.New("record can only be rated once completed")

	ErrRequesterRequired = errors.New("requester id is required")
	ErrDelegateRequired  = errors.New("delegate id is required")
	ErrNoDelegates       = errors.New("at least one delegate is required")
	ErrWindowInvalid     = errors.New("pickup window is invalid")
	ErrRatingRange       = errors.New("rating must be between 1 and 5")
)
