package sharing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for sharing session storage
type SessionRepository interface {
	// CreateSession inserts a session together with its resource link rows.
	// The resource set of a session is immutable after creation.
	CreateSession(ctx context.Context, session SharingSession) (SharingSession, error)

	// GetSession retrieves a session with its resource ids
	GetSession(ctx context.Context, id uuid.UUID) (SharingSession, error)

	// ListSessionsByOwner lists all sessions issued by an owner, newest
	// first, including expired ones (history is retained until forgotten)
	ListSessionsByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]SharingSession, int64, error)

	// FindOverlappingUsable returns the sessions from owner to invitee that
	// are usable at the given time and reference any of the given resources
	FindOverlappingUsable(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, resourceIDs []uuid.UUID, now time.Time) ([]SharingSession, error)

	// FindUsableEditorSession returns a usable editor session from owner to
	// invitee, or ErrSessionNotFound
	FindUsableEditorSession(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, now time.Time) (SharingSession, error)

	// FindSessionsByResource returns all sessions linking the resource
	FindSessionsByResource(ctx context.Context, resourceID uuid.UUID) ([]SharingSession, error)

	// ActivateSession sets activated_at (and expires_at when the session has
	// a positive duration) if and only if the session has not been activated
	// yet. The check and the write are a single atomic operation so two
	// concurrent first opens cannot compute expiry from different
	// timestamps. Returns the session as stored after the call.
	ActivateSession(ctx context.Context, id uuid.UUID, now time.Time) (SharingSession, error)

	// ExpireSession sets expires_at to the given time, overwriting any prior
	// null or future value
	ExpireSession(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteSession physically removes a session and its links ("forget")
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// BeginTx starts a storage transaction and returns a repository scoped
	// to it together with the transaction handle
	BeginTx(ctx context.Context) (SessionRepository, SessionTx, error)

	// WithTx returns a repository scoped to an externally owned transaction
	// (e.g. a resource-deletion transaction that must also revoke sessions)
	WithTx(tx interface{}) SessionRepository
}

// SessionTx is the commit/rollback handle for a repository transaction
type SessionTx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ResourceChecker is the boundary to the resource domains being shared. Only
// ownership matters here; the resource contents are out of scope.
type ResourceChecker interface {
	// OwnsResources reports whether every given resource exists and is owned
	// by ownerID
	OwnsResources(ctx context.Context, ownerID uuid.UUID, resourceIDs []uuid.UUID) (bool, error)
}
