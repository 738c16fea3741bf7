package delegation

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a delegation record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProposal  Status = "proposal"
	StatusAccepted  Status = "accepted"
	StatusCollected Status = "collected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Role identifies which side of the delegation performs an action.
type Role string

const (
	RoleRequester Role = "requester"
	RoleDelegate  Role = "delegate"
)

// transitions is the closed transition table. Each edge lists the roles
// allowed to drive it.
var transitions = map[Status]map[Status][]Role{
	StatusPending: {
		StatusAccepted:  {RoleDelegate},
		StatusProposal:  {RoleDelegate},
		StatusCancelled: {RoleDelegate},
	},
	StatusProposal: {
		StatusAccepted:  {RoleRequester, RoleDelegate},
		StatusCancelled: {RoleDelegate},
	},
	StatusAccepted: {
		StatusCollected: {RoleDelegate},
	},
	StatusCollected: {
		StatusCompleted: {RoleRequester},
	},
	StatusCancelled: {
		StatusPending: {RoleRequester},
	},
}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusPending, StatusProposal, StatusAccepted, StatusCollected, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, value)
}

// Winning reports whether a record in this status claims its delivery group.
func (s Status) Winning() bool {
	return s == StatusAccepted || s == StatusCollected || s == StatusCompleted
}

// TerminalSuccessful reports whether the record represents a finished delivery
// that the watchdog must never touch.
func (s Status) TerminalSuccessful() bool {
	return s == StatusCollected || s == StatusCompleted
}

// Editable reports whether the pickup window may still be rewritten in place.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusProposal || s == StatusCancelled
}

// CanTransition validates a state-machine edge for the given role.
func CanTransition(from, to Status, role Role) error {
	roles, ok := transitions[from][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move %s -> %s", ErrWrongActor, role, from, to)
}
