package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/pkg/idx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// MembershipService owns user records, group creation and the invitation
// state machine. It is the only writer of users, members and invites.
type MembershipService struct {
	Store    store.Store
	Notifier *notify.Notifier
}

// ProvisionUser creates the user record for an authenticated identity. The
// uid comes from the credential provider and is trusted as-is.
func (s *MembershipService) ProvisionUser(ctx context.Context, uid, email, name string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if uid == "" || email == "" || name == "" {
		return domain.User{}, ErrInvalidArgument
	}

	u := domain.User{
		ID:        uid,
		Email:     email,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUserExists
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user provisioned", slog.String("user_id", uid))
	s.publishUser(ctx, uid)
	return u, nil
}

// GetUser returns the caller's own record, with group index and invite
// inbox.
func (s *MembershipService) GetUser(ctx context.Context, uid string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// GetUserGroups returns the caller's group index in join order.
func (s *MembershipService) GetUserGroups(ctx context.Context, uid string) ([]domain.GroupRef, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Store.Users().ListGroupRefs(ctx, uid)
}

// CheckGroupNameExists reports whether the user already has a group with
// this name. The comparison is case-insensitive over the trimmed name. An
// unknown user is an error, not an empty index.
func (s *MembershipService) CheckGroupNameExists(ctx context.Context, uid, name string) (bool, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	refs, err := s.Store.Users().ListGroupRefs(ctx, uid)
	if err != nil {
		return false, err
	}
	return groupNameExists(refs, name), nil
}

func groupNameExists(refs []domain.GroupRef, name string) bool {
	name = strings.TrimSpace(name)
	for _, ref := range refs {
		if strings.EqualFold(ref.Name, name) {
			return true
		}
	}
	return false
}

// CreateGroup creates a group with the caller as sole member and indexes it
// into the caller's group list. Both writes commit in one transaction.
func (s *MembershipService) CreateGroup(ctx context.Context, uid, name string) (domain.GroupRef, error) {
	log := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.GroupRef{}, ErrInvalidArgument
	}

	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.GroupRef{}, ErrUserNotFound
		}
		log.Error("failed to fetch user", slog.Any("error", err))
		return domain.GroupRef{}, err
	}

	if groupNameExists(u.Groups, name) {
		return domain.GroupRef{}, ErrGroupNameTaken
	}

	now := time.Now().UTC()
	group := domain.Group{
		ID:           idx.New().String(),
		Name:         name,
		CreationDate: now,
		Members: []domain.Member{
			{ID: u.ID, Name: u.Name, JoinDate: now},
		},
	}
	ref := domain.GroupRef{ID: group.ID, Name: group.Name}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Groups().CreateGroup(ctx, group); err != nil {
			return err
		}
		if err := tx.Users().AddGroupRef(ctx, uid, ref); err != nil {
			return err
		}
		return tx.Users().BumpVersion(ctx, uid)
	})
	if err != nil {
		log.Error("failed to create group",
			slog.String("group_id", group.ID),
			slog.Any("error", err),
		)
		return domain.GroupRef{}, err
	}

	log.Info("group created",
		slog.String("group_id", group.ID),
		slog.String("user_id", uid),
	)

	s.publishGroup(ctx, group.ID)
	s.publishUser(ctx, uid)
	return ref, nil
}

// GetGroupDetails returns a group snapshot. Only members may read it.
func (s *MembershipService) GetGroupDetails(ctx context.Context, uid, groupID string) (domain.Group, error) {
	g, err := s.Store.Groups().GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Group{}, ErrGroupNotFound
		}
		return domain.Group{}, err
	}

	for _, m := range g.Members {
		if m.ID == uid {
			return g, nil
		}
	}
	return domain.Group{}, ErrNotMember
}

// Invite offers group membership to the user registered under email. The
// invite lands in the invitee's inbox; at most one pending invite per
// (group, invitee) pair exists at a time.
func (s *MembershipService) Invite(ctx context.Context, inviterUID, groupID, email string) (domain.Invite, error) {
	log := slogx.FromContext(ctx)

	email = strings.TrimSpace(email)
	if groupID == "" || email == "" {
		return domain.Invite{}, ErrInvalidArgument
	}

	inviter, err := s.Store.Users().GetUserByID(ctx, inviterUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrUserNotFound
		}
		return domain.Invite{}, err
	}

	group, err := s.Store.Groups().GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrGroupNotFound
		}
		return domain.Invite{}, err
	}

	isMember := false
	for _, m := range group.Members {
		if m.ID == inviterUID {
			isMember = true
			break
		}
	}
	if !isMember {
		log.Warn("non-member attempted to invite",
			slog.String("group_id", groupID),
			slog.String("user_id", inviterUID),
		)
		return domain.Invite{}, ErrNotMember
	}

	invitee, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invite{}, ErrInviteeNotFound
		}
		return domain.Invite{}, err
	}

	for _, m := range group.Members {
		if m.ID == invitee.ID {
			return domain.Invite{}, ErrAlreadyMember
		}
	}

	inv := domain.Invite{
		ID:          idx.New().String(),
		UserID:      invitee.ID,
		GroupID:     group.ID,
		GroupName:   group.Name,
		InviterID:   inviter.ID,
		InviterName: inviter.Name,
		CreatedAt:   time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().CreateInvite(ctx, inv); err != nil {
			return err
		}
		return tx.Users().BumpVersion(ctx, invitee.ID)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Invite{}, ErrAlreadyInvited
		}
		log.Error("failed to create invite", slog.Any("error", err))
		return domain.Invite{}, err
	}

	log.Info("invitation sent",
		slog.String("group_id", group.ID),
		slog.String("inviter_id", inviter.ID),
		slog.String("invitee_id", invitee.ID),
	)

	s.publishUser(ctx, invitee.ID)
	return inv, nil
}

// AcceptInvitation consumes an invite and joins the group. Adding the
// member, indexing the GroupRef and removing the invite commit together or
// not at all. Accepting an invite that is already consumed returns
// ErrInviteNotFound.
func (s *MembershipService) AcceptInvitation(ctx context.Context, uid, inviteID string) error {
	log := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	inv, err := s.Store.Invites().GetInvite(ctx, uid, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		return err
	}

	group, err := s.Store.Groups().GetGroupByID(ctx, inv.GroupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The group is gone; the invite can never be honoured. Drop it
			// so the inbox does not accumulate dead entries.
			derr := s.Store.WithTx(ctx, func(tx store.Tx) error {
				if err := tx.Invites().DeleteInvite(ctx, uid, inviteID); err != nil {
					return err
				}
				return tx.Users().BumpVersion(ctx, uid)
			})
			if derr != nil && !errors.Is(derr, store.ErrNotFound) {
				log.Warn("failed to drop stale invite", slog.Any("error", derr))
			}
			s.publishUser(ctx, uid)
			return ErrGroupNotFound
		}
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		member := domain.Member{ID: u.ID, Name: u.Name, JoinDate: time.Now().UTC()}
		if err := tx.Groups().AddMember(ctx, inv.GroupID, member); err != nil &&
			!errors.Is(err, store.ErrAlreadyExists) {
			return err
		}

		ref := domain.GroupRef{ID: group.ID, Name: group.Name}
		if err := tx.Users().AddGroupRef(ctx, uid, ref); err != nil &&
			!errors.Is(err, store.ErrAlreadyExists) {
			return err
		}

		// The invite must still be present at commit time; losing a race
		// with another accept/decline fails the whole transaction.
		if err := tx.Invites().DeleteInvite(ctx, uid, inviteID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInviteNotFound
			}
			return err
		}

		if err := tx.Groups().BumpVersion(ctx, inv.GroupID); err != nil {
			return err
		}
		return tx.Users().BumpVersion(ctx, uid)
	})
	if err != nil {
		if !errors.Is(err, ErrInviteNotFound) {
			log.Error("failed to accept invitation",
				slog.String("invite_id", inviteID),
				slog.Any("error", err),
			)
		}
		return err
	}

	log.Info("invitation accepted",
		slog.String("invite_id", inviteID),
		slog.String("group_id", group.ID),
		slog.String("user_id", uid),
	)

	s.publishGroup(ctx, group.ID)
	s.publishUser(ctx, uid)
	return nil
}

// DeclineInvitation consumes an invite without joining. Declining an
// already-consumed invite returns ErrInviteNotFound, not a silent success.
func (s *MembershipService) DeclineInvitation(ctx context.Context, uid, inviteID string) error {
	log := slogx.FromContext(ctx)

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Invites().DeleteInvite(ctx, uid, inviteID); err != nil {
			return err
		}
		return tx.Users().BumpVersion(ctx, uid)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInviteNotFound
		}
		log.Error("failed to decline invitation", slog.Any("error", err))
		return err
	}

	log.Info("invitation declined",
		slog.String("invite_id", inviteID),
		slog.String("user_id", uid),
	)

	s.publishUser(ctx, uid)
	return nil
}

// publishGroup pushes a fresh group snapshot to the change feed. Feed
// delivery is best-effort; a failed re-read only costs subscribers one
// update. The snapshot carries the record version, so a re-read that raced
// behind a later commit is dropped by subscriptions instead of rewinding
// their feed.
func (s *MembershipService) publishGroup(ctx context.Context, groupID string) {
	if s.Notifier == nil {
		return
	}
	g, err := s.Store.Groups().GetGroupByID(ctx, groupID)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load group snapshot for feed",
			slog.String("group_id", groupID),
			slog.Any("error", err),
		)
		return
	}
	s.Notifier.Publish(notify.GroupKey(groupID), g)
}

func (s *MembershipService) publishUser(ctx context.Context, uid string) {
	if s.Notifier == nil {
		return
	}
	u, err := s.Store.Users().GetUserByID(ctx, uid)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load user snapshot for feed",
			slog.String("user_id", uid),
			slog.Any("error", err),
		)
		return
	}
	s.Notifier.Publish(notify.UserKey(uid), u)
}
