package delegation

import (
	"context"
	"strings"

	"doora/internal/domain/delegation"
	"doora/internal/ports"
)

// Remove takes a record out of the actor's view. The requester owns the
// record and removes it for everyone; a delegate merely declines, which keeps
// the refusal visible on the requester side.
func (s *Service) Remove(ctx context.Context, input TransitionInput) error {
	if err := s.guard(ctx); err != nil {
		return err
	}

	record, err := s.repo.GetRecord(ctx, strings.TrimSpace(input.RecordID))
	if err != nil {
		return err
	}

	role, err := record.RoleOf(input.Actor.ID)
	if err != nil {
		return err
	}

	if role == delegation.RoleDelegate {
		_, err := s.Decline(ctx, input)
		return err
	}

	if err := s.repo.DeleteRecord(ctx, record.ID); err != nil {
		return err
	}
	s.publishChange(ctx, ports.ChangeDeleted, record, input.Actor.ID)
	return nil
}
