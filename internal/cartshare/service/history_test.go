package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/service"
)

func checkoutOn(id, date string, amount float64) domain.Checkout {
	return domain.Checkout{ID: id, Amount: amount, Date: date, Buyer: "Alice", Items: []string{"Milk"}}
}

func TestAggregateHistoryBucketsAndTrends(t *testing.T) {
	t.Parallel()

	history := []domain.Checkout{
		checkoutOn("c1", "2026-06-03T10:00:00Z", 40),
		checkoutOn("c2", "2026-06-20T10:00:00Z", 60),
		checkoutOn("c3", "2026-07-05T10:00:00Z", 80),
		checkoutOn("c4", "2026-08-14T10:00:00Z", 80),
	}

	buckets := service.AggregateHistory(context.Background(), history)
	require.Len(t, buckets, 3)

	// Newest first.
	require.Equal(t, time.August, buckets[0].Month)
	require.Equal(t, time.July, buckets[1].Month)
	require.Equal(t, time.June, buckets[2].Month)

	// June totals 100, July 80, August 80.
	require.Equal(t, 80.0, buckets[0].Total)
	require.Equal(t, 80.0, buckets[1].Total)
	require.Equal(t, 100.0, buckets[2].Total)

	// August equals July: neutral. July under June: down. Oldest: neutral.
	require.Equal(t, service.TrendNeutral, buckets[0].Trend)
	require.Equal(t, service.TrendDown, buckets[1].Trend)
	require.Equal(t, service.TrendNeutral, buckets[2].Trend)

	require.Len(t, buckets[2].Checkouts, 2)
	require.Equal(t, "c2", buckets[2].Checkouts[0].ID, "checkouts within a bucket are newest first")
}

func TestAggregateHistoryTrendUp(t *testing.T) {
	t.Parallel()

	buckets := service.AggregateHistory(context.Background(), []domain.Checkout{
		checkoutOn("c1", "2026-07-01T00:00:00Z", 50),
		checkoutOn("c2", "2026-08-01T00:00:00Z", 70),
	})
	require.Len(t, buckets, 2)
	require.Equal(t, service.TrendUp, buckets[0].Trend)
	require.Equal(t, service.TrendNeutral, buckets[1].Trend)
}

func TestAggregateHistorySkipsUnparsableDates(t *testing.T) {
	t.Parallel()

	buckets := service.AggregateHistory(context.Background(), []domain.Checkout{
		checkoutOn("c1", "2026-08-01T00:00:00Z", 30),
		checkoutOn("c2", "yesterday-ish", 999),
		checkoutOn("c3", "", 999),
	})
	require.Len(t, buckets, 1)
	require.Equal(t, 30.0, buckets[0].Total)
	require.Len(t, buckets[0].Checkouts, 1)
}

func TestAggregateHistoryIsPure(t *testing.T) {
	t.Parallel()

	history := []domain.Checkout{
		checkoutOn("c1", "2026-06-03T10:00:00Z", 40),
		checkoutOn("c2", "2026-07-05T10:00:00Z", 80),
	}

	first := service.AggregateHistory(context.Background(), history)
	second := service.AggregateHistory(context.Background(), history)
	require.Equal(t, first, second)
}

func TestAggregateHistoryEmpty(t *testing.T) {
	t.Parallel()

	buckets := service.AggregateHistory(context.Background(), nil)
	require.Empty(t, buckets)
}

func TestMonthBucketLabel(t *testing.T) {
	t.Parallel()

	b := service.MonthBucket{Year: 2026, Month: time.January}
	require.Equal(t, "January 2026", b.Label())
}

func TestGetGroupHistory(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1", "alice@example.com", "Alice")
	env.seedUser(t, "u2", "bob@example.com", "Bob")
	groupID := env.seedGroup(t, "u1", "Groceries")

	item, err := env.list.AddItem(ctx, "u1", groupID, "Milk")
	require.NoError(t, err)
	_, err = env.list.ToggleItem(ctx, "u1", groupID, item.ID)
	require.NoError(t, err)
	_, err = env.list.Checkout(ctx, "u1", groupID, "12.50", "Alice")
	require.NoError(t, err)

	buckets, err := env.history.GetGroupHistory(ctx, "u1", groupID)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Equal(t, 12.5, buckets[0].Total)
	require.Equal(t, service.TrendNeutral, buckets[0].Trend)

	t.Run("non-members cannot read history", func(t *testing.T) {
		_, err := env.history.GetGroupHistory(ctx, "u2", groupID)
		require.ErrorIs(t, err, service.ErrNotMember)
	})
}
