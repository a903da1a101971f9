package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartshare/cartshare/internal/cartshare/service"
)

func TestProvisionUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.membership.ProvisionUser(ctx, "u1", "alice@example.com", "Alice")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "alice@example.com", u.Email)

	t.Run("duplicate uid is rejected", func(t *testing.T) {
		_, err := env.membership.ProvisionUser(ctx, "u1", "other@example.com", "Other")
		require.ErrorIs(t, err, service.ErrUserExists)
	})

	t.Run("blank fields are rejected", func(t *testing.T) {
		_, err := env.membership.ProvisionUser(ctx, "u2", "   ", "Bob")
		require.ErrorIs(t, err, service.ErrInvalidArgument)
	})
}

func TestCreateGroup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")

	ref, err := env.membership.CreateGroup(ctx, "u1", "Groceries")
	require.NoError(t, err)
	require.NotEmpty(t, ref.ID)
	require.Equal(t, "Groceries", ref.Name)

	// Both sides of the atomic create are visible: the group exists with the
	// creator as sole member, and the creator's index references it.
	g, err := env.membership.GetGroupDetails(ctx, "u1", ref.ID)
	require.NoError(t, err)
	require.Len(t, g.Members, 1)
	require.Equal(t, "u1", g.Members[0].ID)
	require.Empty(t, g.ShoppingList)
	require.Empty(t, g.History)

	refs, err := env.membership.GetUserGroups(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, ref.ID, refs[0].ID)

	t.Run("name exists check sees the group", func(t *testing.T) {
		exists, err := env.membership.CheckGroupNameExists(ctx, "u1", "groceries")
		require.NoError(t, err)
		require.True(t, exists)

		exists, err = env.membership.CheckGroupNameExists(ctx, "u1", "Holiday")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("name exists check rejects unknown users", func(t *testing.T) {
		_, err := env.membership.CheckGroupNameExists(ctx, "ghost", "Groceries")
		require.ErrorIs(t, err, service.ErrUserNotFound)
	})

	t.Run("duplicate name per user conflicts", func(t *testing.T) {
		_, err := env.membership.CreateGroup(ctx, "u1", "  Groceries ")
		require.ErrorIs(t, err, service.ErrGroupNameTaken)
	})

	t.Run("same name is fine for another user", func(t *testing.T) {
		env.seedUser(t, "u2", "bob@example.com", "Bob")
		_, err := env.membership.CreateGroup(ctx, "u2", "Groceries")
		require.NoError(t, err)
	})
}

func TestGetGroupDetailsRequiresMembership(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	env.seedUser(t, "u2", "bob@example.com", "Bob")
	groupID := env.seedGroup(t, "u1", "Groceries")

	_, err := env.membership.GetGroupDetails(ctx, "u2", groupID)
	require.ErrorIs(t, err, service.ErrNotMember)

	_, err = env.membership.GetGroupDetails(ctx, "u1", "nope")
	require.ErrorIs(t, err, service.ErrGroupNotFound)
}

func TestInvite(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	env.seedUser(t, "u2", "bob@example.com", "Bob")
	groupID := env.seedGroup(t, "u1", "Groceries")

	inv, err := env.membership.Invite(ctx, "u1", groupID, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, "u2", inv.UserID)
	require.Equal(t, groupID, inv.GroupID)
	require.Equal(t, "Groceries", inv.GroupName)
	require.Equal(t, "Alice", inv.InviterName)

	// The invite lands in the invitee's inbox, not the inviter's, and bumps
	// the invitee's record version with the same commit.
	bob, err := env.membership.GetUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, bob.Invites, 1)
	require.Equal(t, int64(1), bob.Version)

	alice, err := env.membership.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, alice.Invites)

	t.Run("duplicate pending invite conflicts", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, "u1", groupID, "bob@example.com")
		require.ErrorIs(t, err, service.ErrAlreadyInvited)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, "u1", groupID, "nobody@example.com")
		require.ErrorIs(t, err, service.ErrInviteeNotFound)
	})

	t.Run("inviting an existing member conflicts", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, "u1", groupID, "alice@example.com")
		require.ErrorIs(t, err, service.ErrAlreadyMember)
	})

	t.Run("non-members cannot invite", func(t *testing.T) {
		env.seedUser(t, "u3", "carol@example.com", "Carol")
		_, err := env.membership.Invite(ctx, "u3", groupID, "bob@example.com")
		require.ErrorIs(t, err, service.ErrNotMember)
	})
}

func TestAcceptInvitation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	env.seedUser(t, "u2", "bob@example.com", "Bob")
	groupID := env.seedGroup(t, "u1", "Groceries")

	inv, err := env.membership.Invite(ctx, "u1", groupID, "bob@example.com")
	require.NoError(t, err)

	require.NoError(t, env.membership.AcceptInvitation(ctx, "u2", inv.ID))

	// All three effects of acceptance are visible together, and the group
	// version moved with the same commit.
	g, err := env.membership.GetGroupDetails(ctx, "u2", groupID)
	require.NoError(t, err)
	require.Len(t, g.Members, 2)
	require.Equal(t, int64(1), g.Version)

	bob, err := env.membership.GetUser(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, bob.Invites)
	require.Len(t, bob.Groups, 1)
	require.Equal(t, groupID, bob.Groups[0].ID)

	// One version per committed mutation: the invite, then the acceptance.
	require.Equal(t, int64(2), bob.Version)

	t.Run("second accept fails", func(t *testing.T) {
		err := env.membership.AcceptInvitation(ctx, "u2", inv.ID)
		require.ErrorIs(t, err, service.ErrInviteNotFound)
	})

	t.Run("decline after accept fails", func(t *testing.T) {
		err := env.membership.DeclineInvitation(ctx, "u2", inv.ID)
		require.ErrorIs(t, err, service.ErrInviteNotFound)
	})

	t.Run("membership survives the failed re-accept", func(t *testing.T) {
		g, err := env.membership.GetGroupDetails(ctx, "u2", groupID)
		require.NoError(t, err)
		require.Len(t, g.Members, 2)
	})
}

func TestDeclineInvitation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	env.seedUser(t, "u2", "bob@example.com", "Bob")
	groupID := env.seedGroup(t, "u1", "Groceries")

	inv, err := env.membership.Invite(ctx, "u1", groupID, "bob@example.com")
	require.NoError(t, err)

	require.NoError(t, env.membership.DeclineInvitation(ctx, "u2", inv.ID))

	// Declining removes the invite and nothing else.
	bob, err := env.membership.GetUser(ctx, "u2")
	require.NoError(t, err)
	require.Empty(t, bob.Invites)
	require.Empty(t, bob.Groups)

	_, err = env.membership.GetGroupDetails(ctx, "u2", groupID)
	require.ErrorIs(t, err, service.ErrNotMember)

	t.Run("re-invite after decline works", func(t *testing.T) {
		_, err := env.membership.Invite(ctx, "u1", groupID, "bob@example.com")
		require.NoError(t, err)
	})
}

func TestAcceptInvitationForDeletedUserInvite(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")

	err := env.membership.AcceptInvitation(ctx, "u1", "missing-invite")
	require.ErrorIs(t, err, service.ErrInviteNotFound)
}
