package sharing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-share/pkg/mapper"
	"github.com/tendant/simple-share/pkg/notification"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	repo     *InMemSessionRepository
	checker  *InMemResourceChecker
	users    *mapper.InMemUserMapper
	clock    *fakeClock
	notifier *notification.MockNotifier

	owner     mapper.User
	invitee   mapper.User
	resources []uuid.UUID
}

func setupSharingService(t *testing.T) (*SharingService, *testEnv) {
	env := &testEnv{
		repo:     NewInMemSessionRepository(),
		checker:  NewInMemResourceChecker(),
		users:    mapper.NewInMemUserMapper(),
		clock:    &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		notifier: &notification.MockNotifier{},
	}

	env.owner = env.users.AddUser(mapper.User{Email: "alice@example.com", DisplayName: "Alice"})
	env.invitee = env.users.AddUser(mapper.User{Email: "bob@example.com", DisplayName: "Bob"})

	for i := 0; i < 3; i++ {
		id := uuid.New()
		env.checker.AddResource(id, env.owner.ID)
		env.resources = append(env.resources, id)
	}

	nm := notification.NewNotificationManager()
	nm.RegisterNotifier(notification.EmailSystem, env.notifier)
	require.NoError(t, nm.RegisterNotification(notification.ShareInviteNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Items shared with you",
		Text:    "{{.OwnerName}} shared {{.ResourceCount}} item(s) with you.",
	}))
	require.NoError(t, nm.RegisterNotification(notification.ShareRevokedNotice, notification.EmailSystem, notification.NoticeTemplate{
		Subject: "Sharing has been stopped",
		Text:    "{{.OwnerName}} stopped sharing with you.",
	}))

	service := NewSharingService(env.repo, env.checker, env.users,
		WithClock(env.clock.Now),
		WithNotificationManager(nm),
		WithBaseUrl("http://localhost:4000"),
	)
	return service, env
}

func sentOfType(notifier *notification.MockNotifier, noticeType notification.NoticeType) int {
	count := 0
	for _, sent := range notifier.SentTypes {
		if sent == noticeType {
			count++
		}
	}
	return count
}

func TestSharingService_Share_Editor(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "Bob@Example.com",
		ResourceIDs:     env.resources[:2],
		Role:            RoleEditor,
		DurationMinutes: 45,
	})
	require.NoError(t, err)

	// Editor sessions start immediately and never expire on their own
	assert.Equal(t, RoleEditor, session.Role)
	assert.Equal(t, "bob@example.com", session.InviteeEmail)
	require.NotNil(t, session.ActivatedAt)
	assert.Equal(t, env.clock.Now(), *session.ActivatedAt)
	assert.Nil(t, session.ExpiresAt)
	assert.Equal(t, int32(0), session.DurationMinutes)
	assert.Equal(t, int32(2), session.TotalResourceCount)
	assert.True(t, session.Usable(env.clock.Now()))

	assert.Equal(t, 1, sentOfType(env.notifier, notification.ShareInviteNotice))
	assert.Equal(t, "bob@example.com", env.notifier.SentNotifications[0].To)
}

func TestSharingService_Share_Viewer(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources,
		Role:            RoleViewer,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	// Viewer sessions stay dormant until first opened
	assert.Nil(t, session.ActivatedAt)
	assert.Nil(t, session.ExpiresAt)
	assert.Equal(t, int32(60), session.DurationMinutes)
	assert.True(t, session.Usable(env.clock.Now()))
}

func TestSharingService_Share_DuplicateResourceIDs(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  []uuid.UUID{env.resources[0], env.resources[1], env.resources[0]},
		Role:         RoleEditor,
	})
	require.NoError(t, err)

	// Repeated ids collapse to a single grant per resource
	assert.Equal(t, int32(2), session.TotalResourceCount)
	assert.ElementsMatch(t, env.resources[:2], session.ResourceIDs)
}

func TestSharingService_Share_Validation(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	_, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources,
		Role:         Role("admin"),
	})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources,
		Role:            RoleViewer,
		DurationMinutes: -5,
	})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		Role:         RoleViewer,
	})
	assert.ErrorIs(t, err, ErrNoResources)

	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "ALICE@example.com",
		ResourceIDs:  env.resources,
		Role:         RoleViewer,
	})
	assert.ErrorIs(t, err, ErrSelfShare)

	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  []uuid.UUID{uuid.New()},
		Role:         RoleViewer,
	})
	assert.ErrorIs(t, err, ErrResourceNotFound)

	assert.Empty(t, env.notifier.SentNotifications)
}

func TestSharingService_Share_SupersedesOverlapping(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	first, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources[:1],
		Role:            RoleViewer,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	env.clock.Advance(5 * time.Minute)

	second, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources[:2],
		Role:            RoleEditor,
		DurationMinutes: 0,
	})
	require.NoError(t, err)

	// The old session is replaced, not merged: it is no longer usable and
	// the new session carries exactly the requested resources
	old, err := service.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.Usable(env.clock.Now()))

	assert.ElementsMatch(t, env.resources[:2], second.ResourceIDs)
	assert.True(t, second.Usable(env.clock.Now()))

	// Replacement is silent: two invites, no revocation notice
	assert.Equal(t, 2, sentOfType(env.notifier, notification.ShareInviteNotice))
	assert.Equal(t, 0, sentOfType(env.notifier, notification.ShareRevokedNotice))
}

func TestSharingService_Share_DisjointResourcesKeepOldSession(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	first, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources[:1],
		Role:            RoleViewer,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	// Sharing a disjoint resource set does not touch the earlier grant
	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail:    "bob@example.com",
		ResourceIDs:     env.resources[2:],
		Role:            RoleViewer,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	old, err := service.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, old.Usable(env.clock.Now()))
}

func TestSharingService_Revoke(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources,
		Role:         RoleEditor,
	})
	require.NoError(t, err)

	err = service.Revoke(ctx, env.owner.ID, session.ID)
	require.NoError(t, err)

	revoked, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, revoked.Usable(env.clock.Now().Add(time.Nanosecond)))
	require.NotNil(t, revoked.ExpiresAt)
	firstExpiry := *revoked.ExpiresAt

	assert.Equal(t, 1, sentOfType(env.notifier, notification.ShareRevokedNotice))

	// Revoking again is a no-op and keeps the original expiry
	env.clock.Advance(10 * time.Minute)
	err = service.Revoke(ctx, env.owner.ID, session.ID)
	require.NoError(t, err)

	again, err := service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, firstExpiry, *again.ExpiresAt)
	assert.Equal(t, 1, sentOfType(env.notifier, notification.ShareRevokedNotice))
}

func TestSharingService_Revoke_NotOwner(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources,
		Role:         RoleViewer,
	})
	require.NoError(t, err)

	err = service.Revoke(ctx, env.invitee.ID, session.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = service.Revoke(ctx, env.owner.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSharingService_RevokeAllForResource(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	affected, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources[:1],
		Role:         RoleEditor,
	})
	require.NoError(t, err)

	untouched, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources[2:],
		Role:         RoleViewer,
	})
	require.NoError(t, err)

	err = service.RevokeAllForResource(ctx, env.resources[0])
	require.NoError(t, err)

	now := env.clock.Now().Add(time.Nanosecond)
	got, err := service.GetSession(ctx, affected.ID)
	require.NoError(t, err)
	assert.False(t, got.Usable(now))

	got, err = service.GetSession(ctx, untouched.ID)
	require.NoError(t, err)
	assert.True(t, got.Usable(now))
}

func TestSharingService_Forget(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	session, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources,
		Role:         RoleViewer,
	})
	require.NoError(t, err)

	err = service.Forget(ctx, env.invitee.ID, session.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	err = service.Forget(ctx, env.owner.ID, session.ID)
	require.NoError(t, err)

	_, err = service.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSharingService_ListSessions(t *testing.T) {
	service, env := setupSharingService(t)
	ctx := context.Background()

	first, err := service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "bob@example.com",
		ResourceIDs:  env.resources[:1],
		Role:         RoleViewer,
	})
	require.NoError(t, err)

	env.clock.Advance(1 * time.Minute)
	_, err = service.Share(ctx, env.owner.ID, ShareParams{
		InviteeEmail: "carol@example.com",
		ResourceIDs:  env.resources[1:],
		Role:         RoleEditor,
	})
	require.NoError(t, err)

	require.NoError(t, service.Revoke(ctx, env.owner.ID, first.ID))
	env.clock.Advance(1 * time.Minute)

	// Revoked sessions stay listed until forgotten
	summaries, total, err := service.ListSessions(ctx, env.owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, summaries, 2)

	// Newest first
	assert.Equal(t, "carol@example.com", summaries[0].InviteeEmail)
	assert.True(t, summaries[0].Usable)
	assert.Equal(t, "bob@example.com", summaries[1].InviteeEmail)
	assert.False(t, summaries[1].Usable)
}
