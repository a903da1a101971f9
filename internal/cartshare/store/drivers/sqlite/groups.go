package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/store"
)

type groupsRepo struct {
	db dbtx

	// beginner is set on the root store so multi-query snapshot reads run in
	// their own read transaction. Inside an existing transaction it is nil
	// and reads go straight through.
	beginner *sql.DB
}

// GetGroupByID assembles the snapshot inside one transaction: a settlement
// committing mid-read must never show up in the history while its items
// still sit on the list.
func (r *groupsRepo) GetGroupByID(ctx context.Context, id string) (domain.Group, error) {
	if r.beginner != nil {
		tx, err := r.beginner.BeginTx(ctx, nil)
		if err != nil {
			return domain.Group{}, err
		}
		defer func() {
			_ = tx.Rollback()
		}()
		return (&groupsRepo{db: tx}).GetGroupByID(ctx, id)
	}

	var (
		g         domain.Group
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, creation_date, version FROM groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &createdAt, &g.Version)
	if err != nil {
		return domain.Group{}, mapNotFound(err)
	}
	g.CreationDate = parseTime(createdAt)

	if g.Members, err = r.listMembers(ctx, id); err != nil {
		return domain.Group{}, err
	}
	if g.ShoppingList, err = r.ListItems(ctx, id); err != nil {
		return domain.Group{}, err
	}
	if g.History, err = r.ListCheckouts(ctx, id); err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (r *groupsRepo) CreateGroup(ctx context.Context, g domain.Group) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, creation_date, version) VALUES (?, ?, ?, ?)`,
		g.ID, g.Name, fmtTime(g.CreationDate), g.Version,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	for _, m := range g.Members {
		if err := r.AddMember(ctx, g.ID, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *groupsRepo) AddMember(ctx context.Context, groupID string, m domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, name, join_date) VALUES (?, ?, ?, ?)`,
		groupID, m.ID, m.Name, fmtTime(m.JoinDate),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *groupsRepo) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *groupsRepo) listMembers(ctx context.Context, groupID string) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, name, join_date FROM group_members WHERE group_id = ? ORDER BY join_date, user_id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var (
			m        domain.Member
			joinDate string
		)
		if err := rows.Scan(&m.ID, &m.Name, &joinDate); err != nil {
			return nil, err
		}
		m.JoinDate = parseTime(joinDate)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *groupsRepo) ListItems(ctx context.Context, groupID string) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, checked FROM shopping_items WHERE group_id = ? ORDER BY position`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Checked); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *groupsRepo) GetItem(ctx context.Context, groupID, itemID string) (domain.Item, error) {
	var it domain.Item
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, checked FROM shopping_items WHERE group_id = ? AND id = ?`,
		groupID, itemID,
	).Scan(&it.ID, &it.Name, &it.Checked)
	if err != nil {
		return domain.Item{}, mapNotFound(err)
	}
	return it, nil
}

func (r *groupsRepo) AddItem(ctx context.Context, groupID string, item domain.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_items (id, group_id, name, checked, position)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM shopping_items WHERE group_id = ?))`,
		item.ID, groupID, item.Name, item.Checked, groupID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *groupsRepo) SetItemChecked(ctx context.Context, groupID, itemID string, checked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_items SET checked = ? WHERE group_id = ? AND id = ?`,
		checked, groupID, itemID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}

func (r *groupsRepo) RenameItem(ctx context.Context, groupID, itemID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shopping_items SET name = ? WHERE group_id = ? AND id = ?`,
		name, groupID, itemID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}

func (r *groupsRepo) DeleteItem(ctx context.Context, groupID, itemID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM shopping_items WHERE group_id = ? AND id = ?`,
		groupID, itemID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}

func (r *groupsRepo) DeleteItems(ctx context.Context, groupID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, groupID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM shopping_items WHERE group_id = ? AND id IN (%s)`, placeholders),
		args...,
	)
	return err
}

func (r *groupsRepo) AppendCheckout(ctx context.Context, groupID string, c domain.Checkout) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO checkouts (id, group_id, amount, date, buyer) VALUES (?, ?, ?, ?, ?)`,
		c.ID, groupID, c.Amount, c.Date, c.Buyer,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	for i, name := range c.Items {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO checkout_items (checkout_id, name, position) VALUES (?, ?, ?)`,
			c.ID, name, i,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *groupsRepo) ListCheckouts(ctx context.Context, groupID string) ([]domain.Checkout, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, date, buyer FROM checkouts WHERE group_id = ? ORDER BY id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkouts []domain.Checkout
	for rows.Next() {
		var c domain.Checkout
		if err := rows.Scan(&c.ID, &c.Amount, &c.Date, &c.Buyer); err != nil {
			return nil, err
		}
		checkouts = append(checkouts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range checkouts {
		itemRows, err := r.db.QueryContext(ctx,
			`SELECT name FROM checkout_items WHERE checkout_id = ? ORDER BY position`,
			checkouts[i].ID,
		)
		if err != nil {
			return nil, err
		}
		for itemRows.Next() {
			var name string
			if err := itemRows.Scan(&name); err != nil {
				itemRows.Close()
				return nil, err
			}
			checkouts[i].Items = append(checkouts[i].Items, name)
		}
		itemRows.Close()
		if err := itemRows.Err(); err != nil {
			return nil, err
		}
	}
	return checkouts, nil
}

func (r *groupsRepo) BumpVersion(ctx context.Context, groupID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE groups SET version = version + 1 WHERE id = ?`, groupID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}

// requireRow turns a zero-rows-affected update into ErrNotFound.
func requireRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
