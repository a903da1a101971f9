package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/store"
)

type usersRepo struct {
	db dbtx

	// beginner is set on the root store so multi-query snapshot reads run in
	// their own read transaction. Inside an existing transaction it is nil
	// and reads go straight through.
	beginner *sql.DB
}

// GetUserByID assembles the user row, group index and inbox inside one
// transaction so a concurrent accept or decline never yields a record with
// an invite both consumed and still pending.
func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if r.beginner != nil {
		tx, err := r.beginner.BeginTx(ctx, nil)
		if err != nil {
			return domain.User{}, err
		}
		defer func() {
			_ = tx.Rollback()
		}()
		return (&usersRepo{db: tx}).GetUserByID(ctx, id)
	}

	var (
		u         domain.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, version FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &createdAt, &u.Version)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = parseTime(createdAt)

	if u.Groups, err = r.ListGroupRefs(ctx, id); err != nil {
		return domain.User{}, err
	}
	if u.Invites, err = (&invitesRepo{db: r.db}).ListInvites(ctx, id); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if r.beginner != nil {
		tx, err := r.beginner.BeginTx(ctx, nil)
		if err != nil {
			return domain.User{}, err
		}
		defer func() {
			_ = tx.Rollback()
		}()
		return (&usersRepo{db: tx}).GetUserByEmail(ctx, email)
	}

	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, strings.TrimSpace(email),
	).Scan(&id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at, version) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, fmtTime(u.CreatedAt), u.Version,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) ListGroupRefs(ctx context.Context, userID string) ([]domain.GroupRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, name FROM user_groups WHERE user_id = ? ORDER BY position`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []domain.GroupRef
	for rows.Next() {
		var ref domain.GroupRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *usersRepo) AddGroupRef(ctx context.Context, userID string, ref domain.GroupRef) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_groups (user_id, group_id, name, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM user_groups WHERE user_id = ?))`,
		userID, ref.ID, ref.Name, userID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) BumpVersion(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET version = version + 1 WHERE id = ?`, userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res.RowsAffected())
}
