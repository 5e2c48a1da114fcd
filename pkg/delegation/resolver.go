package delegation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-share/pkg/mapper"
	"github.com/tendant/simple-share/pkg/sharing"
)

// SessionReader is the slice of the sharing service the resolver needs
type SessionReader interface {
	UsableEditorSession(ctx context.Context, ownerID uuid.UUID, inviteeEmail string) (sharing.SharingSession, error)
}

// EffectivePrincipal is the identity a request executes under after
// delegation has been resolved.
//
// When an editor session delegates the caller, UserID and Email become the
// owner's and OnBehalfOfEmail records who actually acted.
type EffectivePrincipal struct {
	UserID          uuid.UUID `json:"user_id"`
	Email           string    `json:"email"`
	ActorID         uuid.UUID `json:"actor_id"`
	OnBehalfOfEmail string    `json:"on_behalf_of_email,omitempty"`
}

// Delegated reports whether the request acts on another user's data
func (e EffectivePrincipal) Delegated() bool {
	return e.OnBehalfOfEmail != ""
}

// Resolver resolves the effective principal for requests that target
// another user's data.
type Resolver struct {
	sessions   SessionReader
	userMapper mapper.UserMapper
}

// NewResolver creates a new delegation resolver
func NewResolver(sessions SessionReader, userMapper mapper.UserMapper) *Resolver {
	return &Resolver{
		sessions:   sessions,
		userMapper: userMapper,
	}
}

// Resolve determines the identity a request from actor targeting ownerID's
// data executes under. Only a usable editor session grants delegation, and
// there is no fallback: without one the request is refused regardless of
// what other relationships exist between the two users. Viewer sessions
// never reach this path; viewer access is the session-keyed read capability
// served by the invitee endpoints.
func (r *Resolver) Resolve(ctx context.Context, actor Principal, ownerID uuid.UUID) (EffectivePrincipal, error) {
	if actor.UserID == uuid.Nil {
		return EffectivePrincipal{}, ErrNoPrincipal
	}

	// Acting on one's own data needs no delegation
	if actor.UserID == ownerID {
		return EffectivePrincipal{
			UserID:  actor.UserID,
			Email:   actor.Email,
			ActorID: actor.UserID,
		}, nil
	}

	session, err := r.sessions.UsableEditorSession(ctx, ownerID, actor.Email)
	if err != nil {
		if errors.Is(err, sharing.ErrSessionNotFound) {
			return EffectivePrincipal{}, ErrDelegationForbidden
		}
		return EffectivePrincipal{}, err
	}

	owner, err := r.userMapper.GetUserByID(ctx, ownerID)
	if err != nil {
		return EffectivePrincipal{}, fmt.Errorf("failed to resolve session owner: %w", err)
	}
	slog.Info("Delegated as editor", "actor", actor.UserID, "owner", ownerID, "sessionId", session.ID)
	return EffectivePrincipal{
		UserID:          owner.ID,
		Email:           owner.Email,
		ActorID:         actor.UserID,
		OnBehalfOfEmail: actor.Email,
	}, nil
}
