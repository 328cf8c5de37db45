package access

import (
	"context"
	"fmt"

	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/pkg/log"
)

// MembershipChecker is the external group-membership collaborator.
type MembershipChecker interface {
	// IsActiveMember reports whether userID holds an active membership
	// in groupID. "Not found" and "inactive" both read as false.
	IsActiveMember(ctx context.Context, userID, groupID string) (bool, error)
}

// Guard decides whether a user may act in a room. Membership state can
// change between requests (kicks, leaves), so every call re-evaluates;
// nothing is cached.
type Guard struct {
	membership MembershipChecker
}

// NewGuard creates an access guard over the membership collaborator.
func NewGuard(membership MembershipChecker) *Guard {
	return &Guard{membership: membership}
}

// Authorize returns nil if userID may read/write in room, or
// domain.ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, userID string, room *domain.Room) error {
	switch room.ContextType {
	case domain.ContextGroup:
		active, err := g.membership.IsActiveMember(ctx, userID, room.ContextID)
		if err != nil {
			return fmt.Errorf("membership lookup failed: %w", err)
		}
		if !active {
			log.Ctx(ctx).Debug().
				Str(log.FieldUserID, userID).
				Str(log.FieldRoomID, room.ID).
				Msg("denied: no active group membership")
			return domain.ErrForbidden
		}
		return nil

	case domain.ContextDirect:
		if !room.HasParticipant(userID) {
			log.Ctx(ctx).Debug().
				Str(log.FieldUserID, userID).
				Str(log.FieldRoomID, room.ID).
				Msg("denied: not a room participant")
			return domain.ErrForbidden
		}
		return nil

	default:
		return domain.ErrForbidden
	}
}
