package sharing

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Verify checks that the session exists, belongs to the given invitee email
// and is still usable. It is read only: a viewer session that has not been
// opened yet stays unactivated, so verification never starts the countdown.
func (s *SharingService) Verify(ctx context.Context, sessionID uuid.UUID, email string) (SharingSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return SharingSession{}, err
	}
	if !strings.EqualFold(session.InviteeEmail, email) {
		return SharingSession{}, ErrEmailMismatch
	}
	if !session.Usable(s.now().UTC()) {
		return SharingSession{}, ErrSessionExpired
	}
	return session, nil
}

// EnsureActivated starts the session's countdown if it has not started yet.
// For a viewer session with a positive duration the expiry becomes activation
// time plus the duration; with a zero duration the session stays open ended
// until revoked. Editor sessions are activated at creation, so this is a
// no-op for them.
//
// Knowing the session id is enough to activate; the email is an optional
// cross-check and an empty one is accepted. Concurrent first opens are safe:
// the repository performs the activation as a single conditional write, so
// exactly one timestamp wins and every caller observes the same expiry.
func (s *SharingService) EnsureActivated(ctx context.Context, sessionID uuid.UUID, email string) (SharingSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return SharingSession{}, err
	}
	if email != "" && !strings.EqualFold(session.InviteeEmail, email) {
		return SharingSession{}, ErrEmailMismatch
	}
	if !session.Usable(s.now().UTC()) {
		return SharingSession{}, ErrSessionExpired
	}
	if session.Activated() {
		return session, nil
	}
	return s.repo.ActivateSession(ctx, sessionID, s.now().UTC())
}

// AuthorizedResources returns the resource ids the invitee may access
// through the session. Listing the resources counts as opening the share,
// so it activates the session first.
func (s *SharingService) AuthorizedResources(ctx context.Context, sessionID uuid.UUID, email string) ([]uuid.UUID, error) {
	session, err := s.EnsureActivated(ctx, sessionID, email)
	if err != nil {
		return nil, err
	}
	return session.ResourceIDs, nil
}
