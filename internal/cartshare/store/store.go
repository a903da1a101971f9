package store

import (
	"context"
	"errors"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a Tx entry point for the operations that must touch several
// records atomically: settlement, invite acceptance and group creation.
type Store interface {
	Users() Users
	Groups() Groups
	Invites() Invites

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended entry point as it cannot leak an open transaction.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus
// Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user with their group index and invite inbox
	// loaded.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail resolves an invitee by exact email match.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id comes from the credential provider).
	CreateUser(ctx context.Context, u domain.User) error

	// ListGroupRefs returns the user's group index in insertion order.
	ListGroupRefs(ctx context.Context, userID string) ([]domain.GroupRef, error)

	// AddGroupRef appends a group to the user's index.
	AddGroupRef(ctx context.Context, userID string, ref domain.GroupRef) error

	// BumpVersion increments the user's record version counter.
	BumpVersion(ctx context.Context, userID string) error
}

type Groups interface {
	// GetGroupByID returns a group with members, shopping list and history
	// loaded.
	GetGroupByID(ctx context.Context, id string) (domain.Group, error)

	// CreateGroup inserts the group record and its initial members.
	CreateGroup(ctx context.Context, g domain.Group) error

	// AddMember inserts a member row. Inserting an existing (group, user)
	// pair returns ErrAlreadyExists.
	AddMember(ctx context.Context, groupID string, m domain.Member) error

	// IsMember reports whether userID belongs to the group.
	IsMember(ctx context.Context, groupID, userID string) (bool, error)

	// ListItems returns the active shopping list in list order.
	ListItems(ctx context.Context, groupID string) ([]domain.Item, error)

	// GetItem fetches a single item by its stable id.
	GetItem(ctx context.Context, groupID, itemID string) (domain.Item, error)

	// AddItem appends an item to the end of the list.
	AddItem(ctx context.Context, groupID string, item domain.Item) error

	// SetItemChecked updates the checked flag of one item.
	SetItemChecked(ctx context.Context, groupID, itemID string, checked bool) error

	// RenameItem updates the name of one item.
	RenameItem(ctx context.Context, groupID, itemID, name string) error

	// DeleteItem removes one item from the list.
	DeleteItem(ctx context.Context, groupID, itemID string) error

	// DeleteItems removes a batch of items (settlement trim).
	DeleteItems(ctx context.Context, groupID string, itemIDs []string) error

	// AppendCheckout appends a settlement to the group's history. History is
	// append-only: no update or delete exists on purpose.
	AppendCheckout(ctx context.Context, groupID string, c domain.Checkout) error

	// ListCheckouts returns the full history in settlement order.
	ListCheckouts(ctx context.Context, groupID string) ([]domain.Checkout, error)

	// BumpVersion increments the group's list version counter.
	BumpVersion(ctx context.Context, groupID string) error
}

type Invites interface {
	// CreateInvite writes a new invite into the invitee's inbox. A second
	// pending invite for the same (user, group) pair returns
	// ErrAlreadyExists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInvite fetches one invite from a user's inbox.
	GetInvite(ctx context.Context, userID, inviteID string) (domain.Invite, error)

	// ListInvites returns a user's pending invites, newest first.
	ListInvites(ctx context.Context, userID string) ([]domain.Invite, error)

	// DeleteInvite consumes an invite. Deleting an invite that is already
	// gone returns ErrNotFound.
	DeleteInvite(ctx context.Context, userID, inviteID string) error
}
