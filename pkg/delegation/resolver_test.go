package delegation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-share/pkg/mapper"
	"github.com/tendant/simple-share/pkg/sharing"
)

type resolverEnv struct {
	service *sharing.SharingService
	users   *mapper.InMemUserMapper
	checker *sharing.InMemResourceChecker

	owner     mapper.User
	invitee   mapper.User
	stranger  mapper.User
	resources []uuid.UUID
}

func setupResolver(t *testing.T) (*Resolver, *resolverEnv) {
	env := &resolverEnv{
		users:   mapper.NewInMemUserMapper(),
		checker: sharing.NewInMemResourceChecker(),
	}

	env.owner = env.users.AddUser(mapper.User{Email: "alice@example.com", DisplayName: "Alice"})
	env.invitee = env.users.AddUser(mapper.User{Email: "bob@example.com", DisplayName: "Bob"})
	env.stranger = env.users.AddUser(mapper.User{Email: "mallory@example.com"})

	for i := 0; i < 2; i++ {
		id := uuid.New()
		env.checker.AddResource(id, env.owner.ID)
		env.resources = append(env.resources, id)
	}

	env.service = sharing.NewSharingService(sharing.NewInMemSessionRepository(), env.checker, env.users)
	return NewResolver(env.service, env.users), env
}

func principalFor(user mapper.User) Principal {
	return Principal{UserID: user.ID, UserId: user.ID.String(), Email: user.Email}
}

func TestResolver_SelfNeedsNoDelegation(t *testing.T) {
	resolver, env := setupResolver(t)

	effective, err := resolver.Resolve(context.Background(), principalFor(env.owner), env.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, env.owner.ID, effective.UserID)
	assert.Equal(t, env.owner.ID, effective.ActorID)
	assert.False(t, effective.Delegated())
}

func TestResolver_EditorSessionSwapsIdentity(t *testing.T) {
	resolver, env := setupResolver(t)
	ctx := context.Background()

	_, err := env.service.Share(ctx, env.owner.ID, sharing.ShareParams{
		InviteeEmail: env.invitee.Email,
		ResourceIDs:  env.resources,
		Role:         sharing.RoleEditor,
	})
	require.NoError(t, err)

	effective, err := resolver.Resolve(ctx, principalFor(env.invitee), env.owner.ID)
	require.NoError(t, err)

	// The request executes as the owner, attributable to the invitee
	assert.Equal(t, env.owner.ID, effective.UserID)
	assert.Equal(t, env.owner.Email, effective.Email)
	assert.Equal(t, env.invitee.ID, effective.ActorID)
	assert.Equal(t, env.invitee.Email, effective.OnBehalfOfEmail)
	assert.True(t, effective.Delegated())
}

func TestResolver_ViewerSessionGrantsNoDelegation(t *testing.T) {
	resolver, env := setupResolver(t)
	ctx := context.Background()

	session, err := env.service.Share(ctx, env.owner.ID, sharing.ShareParams{
		InviteeEmail:    env.invitee.Email,
		ResourceIDs:     env.resources,
		Role:            sharing.RoleViewer,
		DurationMinutes: 60,
	})
	require.NoError(t, err)

	// Only editor sessions delegate; a viewer grant targeting the owner's
	// data through the header path is refused like any other request
	_, err = resolver.Resolve(ctx, principalFor(env.invitee), env.owner.ID)
	assert.ErrorIs(t, err, ErrDelegationForbidden)

	// The refused attempt never opens the share, so the lazy countdown has
	// not started
	got, err := env.service.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ActivatedAt)
	assert.Nil(t, got.ExpiresAt)
}

func TestResolver_NoSessionNoFallback(t *testing.T) {
	resolver, env := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), principalFor(env.stranger), env.owner.ID)
	assert.ErrorIs(t, err, ErrDelegationForbidden)
}

func TestResolver_RevokedSessionStopsDelegation(t *testing.T) {
	resolver, env := setupResolver(t)
	ctx := context.Background()

	session, err := env.service.Share(ctx, env.owner.ID, sharing.ShareParams{
		InviteeEmail: env.invitee.Email,
		ResourceIDs:  env.resources,
		Role:         sharing.RoleEditor,
	})
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, principalFor(env.invitee), env.owner.ID)
	require.NoError(t, err)

	require.NoError(t, env.service.Revoke(ctx, env.owner.ID, session.ID))
	time.Sleep(time.Millisecond)

	// Delegation dies with the session
	_, err = resolver.Resolve(ctx, principalFor(env.invitee), env.owner.ID)
	assert.ErrorIs(t, err, ErrDelegationForbidden)
}
