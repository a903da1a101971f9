package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cartshare/cartshare/internal/cartshare/service"
)

func TestAddItem(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "  Milk ")
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, "Milk", item.Name)
	require.False(t, item.Checked)

	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Len(t, g.ShoppingList, 1)
	require.Equal(t, item.ID, g.ShoppingList[0].ID)
	require.Equal(t, int64(1), g.Version)

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := env.list.AddItem(ctx, "u1", groupID, "   ")
		require.ErrorIs(t, err, service.ErrEmptyItemName)
	})

	t.Run("non-members cannot add", func(t *testing.T) {
		env.seedUser(t, "u2", "bob@example.com", "Bob")
		_, err := env.list.AddItem(ctx, "u2", groupID, "Eggs")
		require.ErrorIs(t, err, service.ErrNotMember)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := env.list.AddItem(ctx, "u1", "nope", "Eggs")
		require.ErrorIs(t, err, service.ErrGroupNotFound)
	})
}

func TestToggleItemIsSelfInverse(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "Milk")
	require.NoError(t, err)

	toggled, err := env.list.ToggleItem(ctx, "u1", groupID, item.ID)
	require.NoError(t, err)
	require.True(t, toggled.Checked)

	back, err := env.list.ToggleItem(ctx, "u1", groupID, item.ID)
	require.NoError(t, err)
	require.False(t, back.Checked)

	// Toggling twice restores the original list, modulo the version counter.
	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Len(t, g.ShoppingList, 1)
	require.Equal(t, item, g.ShoppingList[0])

	t.Run("unknown item", func(t *testing.T) {
		_, err := env.list.ToggleItem(ctx, "u1", groupID, "nope")
		require.ErrorIs(t, err, service.ErrItemNotFound)
	})
}

func TestRenameItem(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "Mlik")
	require.NoError(t, err)

	require.NoError(t, env.list.RenameItem(ctx, "u1", groupID, item.ID, "Milk"))

	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Equal(t, "Milk", g.ShoppingList[0].Name)

	t.Run("empty name is a no-op", func(t *testing.T) {
		require.NoError(t, env.list.RenameItem(ctx, "u1", groupID, item.ID, "  "))

		g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
		require.NoError(t, err)
		require.Equal(t, "Milk", g.ShoppingList[0].Name)
	})

	t.Run("missing item is a no-op", func(t *testing.T) {
		require.NoError(t, env.list.RenameItem(ctx, "u1", groupID, "nope", "Butter"))
	})
}

func TestDeleteItem(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "Milk")
	require.NoError(t, err)

	require.NoError(t, env.list.DeleteItem(ctx, "u1", groupID, item.ID))

	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Empty(t, g.ShoppingList)

	t.Run("second delete fails", func(t *testing.T) {
		err := env.list.DeleteItem(ctx, "u1", groupID, item.ID)
		require.ErrorIs(t, err, service.ErrItemNotFound)
	})
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	milk, err := env.list.AddItem(ctx, "u1", groupID, "Milk")
	require.NoError(t, err)
	eggs, err := env.list.AddItem(ctx, "u1", groupID, "Eggs")
	require.NoError(t, err)
	bread, err := env.list.AddItem(ctx, "u1", groupID, "Bread")
	require.NoError(t, err)

	_, err = env.list.ToggleItem(ctx, "u1", groupID, eggs.ID)
	require.NoError(t, err)
	_, err = env.list.ToggleItem(ctx, "u1", groupID, bread.ID)
	require.NoError(t, err)

	checkout, err := env.list.Checkout(ctx, "u1", groupID, "12.50", "Alice")
	require.NoError(t, err)
	require.Equal(t, 12.5, checkout.Amount)
	require.Equal(t, "Alice", checkout.Buyer)
	require.ElementsMatch(t, []string{"Eggs", "Bread"}, checkout.Items)

	_, err = time.Parse(time.RFC3339, checkout.Date)
	require.NoError(t, err)

	// Checked items moved to history; unchecked items stayed on the list.
	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Len(t, g.ShoppingList, 1)
	require.Equal(t, milk.ID, g.ShoppingList[0].ID)
	require.Len(t, g.History, 1)
	require.Equal(t, checkout.ID, g.History[0].ID)

	t.Run("no checked items left", func(t *testing.T) {
		_, err := env.list.Checkout(ctx, "u1", groupID, "5.00", "Alice")
		require.ErrorIs(t, err, service.ErrNoCheckedItems)
	})
}

func TestCheckoutValidatesAmount(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "Milk")
	require.NoError(t, err)
	_, err = env.list.ToggleItem(ctx, "u1", groupID, item.ID)
	require.NoError(t, err)

	for _, amount := range []string{"", "abc", "0", "-3", "NaN", "+Inf"} {
		_, err := env.list.Checkout(ctx, "u1", groupID, amount, "Alice")
		require.ErrorIs(t, err, service.ErrInvalidAmount, "amount %q", amount)
	}

	// A rejected checkout leaves the list untouched.
	g, err := env.membership.GetGroupDetails(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Len(t, g.ShoppingList, 1)
	require.Empty(t, g.History)
}
