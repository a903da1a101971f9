package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/service"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/internal/cartshare/store/drivers/sqlite"
)

// newTestStore opens a fresh in-memory database per test. The shared-cache
// URI keeps every pooled connection on the same database, which plain
// ":memory:" does not.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := sqlite.NewStore("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

type testEnv struct {
	store      store.Store
	notifier   *notify.Notifier
	membership *service.MembershipService
	list       *service.ListService
	history    *service.HistoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := newTestStore(t)
	n := notify.New()
	t.Cleanup(n.Close)

	return &testEnv{
		store:      s,
		notifier:   n,
		membership: &service.MembershipService{Store: s, Notifier: n},
		list:       &service.ListService{Store: s, Notifier: n},
		history:    &service.HistoryService{Store: s},
	}
}

func (e *testEnv) seedUser(t *testing.T, uid, email, name string) {
	t.Helper()
	_, err := e.membership.ProvisionUser(context.Background(), uid, email, name)
	require.NoError(t, err)
}

func (e *testEnv) seedGroup(t *testing.T, uid, name string) string {
	t.Helper()
	ref, err := e.membership.CreateGroup(context.Background(), uid, name)
	require.NoError(t, err)
	return ref.ID
}
