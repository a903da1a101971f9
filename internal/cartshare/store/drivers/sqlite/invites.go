package sqlite

import (
	"context"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/store"
)

type invitesRepo struct {
	db dbtx
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (id, user_id, group_id, group_name, inviter_id, inviter_name, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.GroupID, inv.GroupName, inv.InviterID, inv.InviterName, fmtTime(inv.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *invitesRepo) GetInvite(ctx context.Context, userID, inviteID string) (domain.Invite, error) {
	var (
		inv       domain.Invite
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, group_id, group_name, inviter_id, inviter_name, created_at
		 FROM invites WHERE user_id = ? AND id = ?`,
		userID, inviteID,
	).Scan(&inv.ID, &inv.UserID, &inv.GroupID, &inv.GroupName, &inv.InviterID, &inv.InviterName, &createdAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.CreatedAt = parseTime(createdAt)
	return inv, nil
}

func (r *invitesRepo) ListInvites(ctx context.Context, userID string) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, group_id, group_name, inviter_id, inviter_name, created_at
		 FROM invites WHERE user_id = ? ORDER BY id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var (
			inv       domain.Invite
			createdAt string
		)
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.GroupID, &inv.GroupName,
			&inv.InviterID, &inv.InviterName, &createdAt); err != nil {
			return nil, err
		}
		inv.CreatedAt = parseTime(createdAt)
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *invitesRepo) DeleteInvite(ctx context.Context, userID, inviteID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE user_id = ? AND id = ?`,
		userID, inviteID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}
