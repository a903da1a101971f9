package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/store"
)

// newFileStore opens a WAL-mode database on disk so readers and writers can
// run genuinely concurrent transactions, which shared-cache in-memory
// databases do not allow.
func newFileStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "cartshare.db") + "?_pragma=journal_mode(WAL)"
	st, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// A settlement moves items from the list into the history in one
// transaction. A snapshot read racing those commits must never observe the
// half-applied state: a checkout already in the history whose items still
// sit on the list.
func TestGroupSnapshotSeesNoPartialSettlement(t *testing.T) {
	st := newFileStore(t)
	ctx := context.Background()

	group := domain.Group{ID: "g1", Name: "Flat 4", CreationDate: time.Now().UTC()}
	require.NoError(t, st.Groups().CreateGroup(ctx, group))

	const rounds = 150

	writerErr := make(chan error, 1)
	go func() {
		for i := range rounds {
			name := fmt.Sprintf("item-%03d", i)
			item := domain.Item{ID: fmt.Sprintf("i%03d", i), Name: name, Checked: true}
			if err := st.Groups().AddItem(ctx, group.ID, item); err != nil {
				writerErr <- err
				return
			}

			err := st.WithTx(ctx, func(tx store.Tx) error {
				c := domain.Checkout{
					ID:     fmt.Sprintf("c%03d", i),
					Amount: 1,
					Date:   time.Now().UTC().Format(time.RFC3339),
					Buyer:  "Alice",
					Items:  []string{name},
				}
				if err := tx.Groups().AppendCheckout(ctx, group.ID, c); err != nil {
					return err
				}
				if err := tx.Groups().DeleteItems(ctx, group.ID, []string{item.ID}); err != nil {
					return err
				}
				return tx.Groups().BumpVersion(ctx, group.ID)
			})
			if err != nil {
				writerErr <- err
				return
			}
		}
		writerErr <- nil
	}()

	for {
		select {
		case err := <-writerErr:
			require.NoError(t, err)

			g, err := st.Groups().GetGroupByID(ctx, group.ID)
			require.NoError(t, err)
			require.Len(t, g.History, rounds)
			require.Empty(t, g.ShoppingList)
			return
		default:
		}

		g, err := st.Groups().GetGroupByID(ctx, group.ID)
		require.NoError(t, err)

		listed := make(map[string]bool, len(g.ShoppingList))
		for _, it := range g.ShoppingList {
			listed[it.Name] = true
		}
		for _, c := range g.History {
			for _, name := range c.Items {
				require.Falsef(t, listed[name],
					"settled item %q still on the list at version %d", name, g.Version)
			}
		}
	}
}
