package sharing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-share/pkg/mapper"
	"github.com/tendant/simple-share/pkg/notification"
)

// SharingService issues, lists and revokes sharing sessions.
type SharingService struct {
	repo                SessionRepository
	checker             ResourceChecker
	userMapper          mapper.UserMapper
	notificationManager *notification.NotificationManager
	baseUrl             string
	now                 func() time.Time
}

// SharingServiceOption is a function that configures a SharingService
type SharingServiceOption func(*SharingService)

// WithNotificationManager sets the notification manager used for invite and
// revocation notices
func WithNotificationManager(nm *notification.NotificationManager) SharingServiceOption {
	return func(s *SharingService) {
		s.notificationManager = nm
	}
}

// WithBaseUrl sets the base URL used to build share links in notifications
func WithBaseUrl(baseUrl string) SharingServiceOption {
	return func(s *SharingService) {
		s.baseUrl = strings.TrimRight(baseUrl, "/")
	}
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) SharingServiceOption {
	return func(s *SharingService) {
		s.now = now
	}
}

// NewSharingService creates a new SharingService
func NewSharingService(repo SessionRepository, checker ResourceChecker, userMapper mapper.UserMapper, opts ...SharingServiceOption) *SharingService {
	svc := &SharingService{
		repo:       repo,
		checker:    checker,
		userMapper: userMapper,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithTx returns a copy of the service whose repository is scoped to an
// externally owned transaction. Notifications stay disabled on the copy so
// nothing is sent before the outer transaction commits.
func (s *SharingService) WithTx(tx interface{}) *SharingService {
	copied := *s
	copied.repo = s.repo.WithTx(tx)
	copied.notificationManager = nil
	return &copied
}

// Share issues a new sharing session from owner to invitee.
//
// Re-sharing with the same invitee replaces prior grants: any still usable
// session between the pair that references one of the requested resources is
// revoked in the same transaction, without notifying the invitee. The new
// session's resource set is exactly the requested one.
func (s *SharingService) Share(ctx context.Context, ownerID uuid.UUID, params ShareParams) (SharingSession, error) {
	if !params.Role.Valid() {
		return SharingSession{}, ErrInvalidRole
	}
	if params.DurationMinutes < 0 {
		return SharingSession{}, ErrInvalidDuration
	}
	if len(params.ResourceIDs) == 0 {
		return SharingSession{}, ErrNoResources
	}

	// Repeated ids collapse to one grant; the session links each resource
	// once
	seen := make(map[uuid.UUID]bool, len(params.ResourceIDs))
	resourceIDs := make([]uuid.UUID, 0, len(params.ResourceIDs))
	for _, id := range params.ResourceIDs {
		if !seen[id] {
			seen[id] = true
			resourceIDs = append(resourceIDs, id)
		}
	}

	inviteeEmail := strings.ToLower(strings.TrimSpace(params.InviteeEmail))
	if inviteeEmail == "" {
		return SharingSession{}, ErrEmailMismatch
	}

	owner, err := s.userMapper.GetUserByID(ctx, ownerID)
	if err != nil {
		return SharingSession{}, fmt.Errorf("failed to resolve owner: %w", err)
	}
	if strings.EqualFold(owner.Email, inviteeEmail) {
		return SharingSession{}, ErrSelfShare
	}

	owns, err := s.checker.OwnsResources(ctx, ownerID, resourceIDs)
	if err != nil {
		return SharingSession{}, fmt.Errorf("failed to check resource ownership: %w", err)
	}
	if !owns {
		return SharingSession{}, ErrResourceNotFound
	}

	now := s.now().UTC()
	session := SharingSession{
		OwnerID:            ownerID,
		InviteeEmail:       inviteeEmail,
		Role:               params.Role,
		DurationMinutes:    params.DurationMinutes,
		CreatedAt:          now,
		ResourceIDs:        resourceIDs,
		TotalResourceCount: int32(len(resourceIDs)),
	}
	if params.Role == RoleEditor {
		// Editor access starts immediately and lasts until revoked
		activatedAt := now
		session.ActivatedAt = &activatedAt
		session.DurationMinutes = 0
	}

	txRepo, tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return SharingSession{}, err
	}
	defer tx.Rollback(ctx)

	overlapping, err := txRepo.FindOverlappingUsable(ctx, ownerID, inviteeEmail, resourceIDs, now)
	if err != nil {
		return SharingSession{}, err
	}
	for _, old := range overlapping {
		if err := txRepo.ExpireSession(ctx, old.ID, now); err != nil {
			return SharingSession{}, fmt.Errorf("failed to supersede session %s: %w", old.ID, err)
		}
		slog.Info("Superseded sharing session", "sessionId", old.ID, "replacedBy", "reshare", "owner", ownerID)
	}

	created, err := txRepo.CreateSession(ctx, session)
	if err != nil {
		return SharingSession{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SharingSession{}, fmt.Errorf("failed to commit share transaction: %w", err)
	}

	s.notifyShareInvite(ctx, owner, created)

	slog.Info("Sharing session issued", "sessionId", created.ID, "owner", ownerID, "invitee", inviteeEmail, "role", created.Role)
	return created, nil
}

// Revoke ends a session immediately. Revoking an already expired or revoked
// session succeeds without changing its recorded expiry.
func (s *SharingService) Revoke(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return ErrNotOwner
	}

	now := s.now().UTC()
	if !session.Usable(now) {
		return nil
	}

	if err := s.repo.ExpireSession(ctx, sessionID, now); err != nil {
		return err
	}

	owner, err := s.userMapper.GetUserByID(ctx, ownerID)
	if err != nil {
		slog.Warn("Failed to resolve owner for revocation notice", "err", err, "owner", ownerID)
		owner.ID = ownerID
	}
	s.notifyShareRevoked(ctx, owner, session)

	slog.Info("Sharing session revoked", "sessionId", sessionID, "owner", ownerID)
	return nil
}

// RevokeAllForResource ends every usable session referencing the resource.
// Intended to run inside the resource deletion transaction via WithTx; no
// notifications are sent from here.
func (s *SharingService) RevokeAllForResource(ctx context.Context, resourceID uuid.UUID) error {
	sessions, err := s.repo.FindSessionsByResource(ctx, resourceID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, session := range sessions {
		if !session.Usable(now) {
			continue
		}
		if err := s.repo.ExpireSession(ctx, session.ID, now); err != nil {
			return fmt.Errorf("failed to revoke session %s for resource %s: %w", session.ID, resourceID, err)
		}
		slog.Info("Sharing session revoked by resource deletion", "sessionId", session.ID, "resourceId", resourceID)
	}
	return nil
}

// Forget removes a session and its resource links from history. Forgetting a
// still usable session also ends the access it granted.
func (s *SharingService) Forget(ctx context.Context, ownerID, sessionID uuid.UUID) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return ErrNotOwner
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("Sharing session forgotten", "sessionId", sessionID, "owner", ownerID)
	return nil
}

// ListSessions returns the owner's sessions, newest first, including expired
// ones
func (s *SharingService) ListSessions(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]SessionSummary, int64, error) {
	sessions, total, err := s.repo.ListSessionsByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	now := s.now().UTC()
	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:                 session.ID,
			InviteeEmail:       session.InviteeEmail,
			Role:               session.Role,
			CreatedAt:          session.CreatedAt,
			ActivatedAt:        session.ActivatedAt,
			ExpiresAt:          session.ExpiresAt,
			TotalResourceCount: session.TotalResourceCount,
			Usable:             session.Usable(now),
		})
	}
	return summaries, total, nil
}

// GetSession returns a session by id without any invitee checks. Callers
// are expected to have verified ownership or delegation separately.
func (s *SharingService) GetSession(ctx context.Context, sessionID uuid.UUID) (SharingSession, error) {
	return s.repo.GetSession(ctx, sessionID)
}

// UsableEditorSession returns a usable editor session from owner to invitee
func (s *SharingService) UsableEditorSession(ctx context.Context, ownerID uuid.UUID, inviteeEmail string) (SharingSession, error) {
	return s.repo.FindUsableEditorSession(ctx, ownerID, strings.ToLower(inviteeEmail), s.now().UTC())
}

func (s *SharingService) shareLink(sessionID uuid.UUID) string {
	if s.baseUrl == "" {
		return "/sharing/" + sessionID.String()
	}
	return s.baseUrl + "/sharing/" + sessionID.String()
}

func ownerDisplayName(owner mapper.User) string {
	if owner.DisplayName != "" {
		return owner.DisplayName
	}
	return owner.Email
}

func (s *SharingService) notifyShareInvite(ctx context.Context, owner mapper.User, session SharingSession) {
	if s.notificationManager == nil {
		slog.Warn("Notification manager not configured, skipping share invite notice")
		return
	}

	expiryNote := "Access lasts until the owner stops sharing."
	if session.DurationMinutes > 0 {
		expiryNote = fmt.Sprintf("Access lasts %d minute(s) from when you first open the shared items.", session.DurationMinutes)
	}

	data := notification.NotificationData{
		To: session.InviteeEmail,
		Data: map[string]string{
			"OwnerName":     ownerDisplayName(owner),
			"OwnerEmail":    owner.Email,
			"Role":          string(session.Role),
			"ResourceCount": fmt.Sprintf("%d", session.TotalResourceCount),
			"ShareLink":     s.shareLink(session.ID),
			"ExpiryNote":    expiryNote,
		},
	}

	// Don't return error - notifications are best effort
	if err := s.notificationManager.Send(notification.ShareInviteNotice, data); err != nil {
		slog.Error("Failed to send share invite notice", "err", err, "sessionId", session.ID)
	}
}

func (s *SharingService) notifyShareRevoked(ctx context.Context, owner mapper.User, session SharingSession) {
	if s.notificationManager == nil {
		return
	}

	data := notification.NotificationData{
		To: session.InviteeEmail,
		Data: map[string]string{
			"OwnerName": ownerDisplayName(owner),
		},
	}

	if err := s.notificationManager.Send(notification.ShareRevokedNotice, data); err != nil {
		slog.Error("Failed to send share revoked notice", "err", err, "sessionId", session.ID)
	}
}
