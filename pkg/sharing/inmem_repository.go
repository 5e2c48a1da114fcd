package sharing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemSessionRepository implements SessionRepository using an in-memory map.
// Intended for tests and local development.
type InMemSessionRepository struct {
	sessions map[uuid.UUID]SharingSession
	mu       sync.Mutex
}

// NewInMemSessionRepository creates a new in-memory session repository
func NewInMemSessionRepository() *InMemSessionRepository {
	return &InMemSessionRepository{
		sessions: make(map[uuid.UUID]SharingSession),
	}
}

func copySession(s SharingSession) SharingSession {
	out := s
	if s.ActivatedAt != nil {
		t := *s.ActivatedAt
		out.ActivatedAt = &t
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		out.ExpiresAt = &t
	}
	out.ResourceIDs = append([]uuid.UUID(nil), s.ResourceIDs...)
	return out
}

// CreateSession inserts a session and its resource links
func (r *InMemSessionRepository) CreateSession(ctx context.Context, session SharingSession) (SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	r.sessions[session.ID] = copySession(session)
	slog.Debug("Sharing session created", "sessionId", session.ID, "owner", session.OwnerID, "invitee", session.InviteeEmail)
	return copySession(session), nil
}

// GetSession retrieves a session by ID
func (r *InMemSessionRepository) GetSession(ctx context.Context, id uuid.UUID) (SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return SharingSession{}, ErrSessionNotFound
	}
	return copySession(session), nil
}

// ListSessionsByOwner lists sessions issued by an owner, newest first
func (r *InMemSessionRepository) ListSessionsByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]SharingSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []SharingSession
	for _, session := range r.sessions {
		if session.OwnerID == ownerID {
			all = append(all, copySession(session))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if offset >= int32(len(all)) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && int32(len(all)) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

// FindOverlappingUsable returns usable sessions from owner to invitee that
// reference any of the given resources
func (r *InMemSessionRepository) FindOverlappingUsable(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, resourceIDs []uuid.UUID, now time.Time) ([]SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(resourceIDs))
	for _, id := range resourceIDs {
		wanted[id] = true
	}

	var matches []SharingSession
	for _, session := range r.sessions {
		if session.OwnerID != ownerID || session.InviteeEmail != inviteeEmail {
			continue
		}
		if !session.Usable(now) {
			continue
		}
		for _, rid := range session.ResourceIDs {
			if wanted[rid] {
				matches = append(matches, copySession(session))
				break
			}
		}
	}
	return matches, nil
}

// FindUsableEditorSession returns a usable editor session from owner to invitee
func (r *InMemSessionRepository) FindUsableEditorSession(ctx context.Context, ownerID uuid.UUID, inviteeEmail string, now time.Time) (SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.OwnerID == ownerID && session.InviteeEmail == inviteeEmail &&
			session.Role == RoleEditor && session.Usable(now) {
			return copySession(session), nil
		}
	}
	return SharingSession{}, ErrSessionNotFound
}

// FindSessionsByResource returns all sessions linking the resource
func (r *InMemSessionRepository) FindSessionsByResource(ctx context.Context, resourceID uuid.UUID) ([]SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []SharingSession
	for _, session := range r.sessions {
		for _, rid := range session.ResourceIDs {
			if rid == resourceID {
				matches = append(matches, copySession(session))
				break
			}
		}
	}
	return matches, nil
}

// ActivateSession sets activated_at and expires_at once, under the repository
// lock, so concurrent first opens observe a single activation timestamp
func (r *InMemSessionRepository) ActivateSession(ctx context.Context, id uuid.UUID, now time.Time) (SharingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return SharingSession{}, ErrSessionNotFound
	}
	if session.ActivatedAt == nil {
		at := now
		session.ActivatedAt = &at
		if session.DurationMinutes > 0 {
			exp := now.Add(time.Duration(session.DurationMinutes) * time.Minute)
			session.ExpiresAt = &exp
		}
		r.sessions[id] = session
		slog.Debug("Sharing session activated", "sessionId", id, "expiresAt", session.ExpiresAt)
	}
	return copySession(session), nil
}

// ExpireSession sets expires_at to the given time
func (r *InMemSessionRepository) ExpireSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	exp := at
	session.ExpiresAt = &exp
	r.sessions[id] = session
	slog.Debug("Sharing session expired", "sessionId", id, "at", at)
	return nil
}

// DeleteSession physically removes a session
func (r *InMemSessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// BeginTx returns the repository itself with a no-op transaction handle.
// Individual operations are already atomic under the repository lock.
func (r *InMemSessionRepository) BeginTx(ctx context.Context) (SessionRepository, SessionTx, error) {
	return r, noopTx{}, nil
}

// WithTx returns the repository unchanged; in-memory storage has no
// external transactions
func (r *InMemSessionRepository) WithTx(tx interface{}) SessionRepository {
	return r
}

type noopTx struct{}

func (noopTx) Commit(ctx context.Context) error   { return nil }
func (noopTx) Rollback(ctx context.Context) error { return nil }

// InMemResourceChecker is a ResourceChecker backed by a map of resource
// owners, for tests and local development
type InMemResourceChecker struct {
	owners map[uuid.UUID]uuid.UUID // resource id -> owner id
	mu     sync.Mutex
}

// NewInMemResourceChecker creates an empty in-memory resource checker
func NewInMemResourceChecker() *InMemResourceChecker {
	return &InMemResourceChecker{
		owners: make(map[uuid.UUID]uuid.UUID),
	}
}

// AddResource registers a resource and its owner
func (c *InMemResourceChecker) AddResource(resourceID, ownerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[resourceID] = ownerID
}

// RemoveResource unregisters a resource
func (c *InMemResourceChecker) RemoveResource(resourceID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owners, resourceID)
}

// OwnsResources reports whether every resource exists and is owned by ownerID
func (c *InMemResourceChecker) OwnsResources(ctx context.Context, ownerID uuid.UUID, resourceIDs []uuid.UUID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rid := range resourceIDs {
		owner, exists := c.owners[rid]
		if !exists || owner != ownerID {
			return false, nil
		}
	}
	return true, nil
}
