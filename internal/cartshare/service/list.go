package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cartshare/cartshare/internal/cartshare/domain"
	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/internal/cartshare/store"
	"github.com/cartshare/cartshare/pkg/idx"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// ListService mutates a group's active shopping list and settles checked
// items into the priced history. Items carry stable ids, so concurrent
// members editing different items never clobber each other; the group
// version counter increments on every list mutation.
type ListService struct {
	Store    store.Store
	Notifier *notify.Notifier
}

// requireMember enforces the authorization invariant shared by every list
// operation: the caller must belong to the group being mutated.
func (s *ListService) requireMember(ctx context.Context, groupID, uid string) error {
	ok, err := s.Store.Groups().IsMember(ctx, groupID, uid)
	if err != nil {
		return err
	}
	if !ok {
		// Distinguish "group missing" from "not yours".
		if _, gerr := s.Store.Groups().GetGroupByID(ctx, groupID); errors.Is(gerr, store.ErrNotFound) {
			return ErrGroupNotFound
		}
		return ErrNotMember
	}
	return nil
}

// AddItem appends a new unchecked item. The trimmed name must be non-empty.
func (s *ListService) AddItem(ctx context.Context, uid, groupID, name string) (domain.Item, error) {
	if err := s.requireMember(ctx, groupID, uid); err != nil {
		return domain.Item{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Item{}, ErrEmptyItemName
	}

	item := domain.Item{ID: idx.New().String(), Name: name, Checked: false}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Groups().AddItem(ctx, groupID, item); err != nil {
			return err
		}
		return tx.Groups().BumpVersion(ctx, groupID)
	})
	if err != nil {
		return domain.Item{}, err
	}

	s.publishGroup(ctx, groupID)
	return item, nil
}

// ToggleItem flips the checked flag of one item. Applying it twice restores
// the original state.
func (s *ListService) ToggleItem(ctx context.Context, uid, groupID, itemID string) (domain.Item, error) {
	if err := s.requireMember(ctx, groupID, uid); err != nil {
		return domain.Item{}, err
	}

	var toggled domain.Item
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		item, err := tx.Groups().GetItem(ctx, groupID, itemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		toggled = item
		toggled.Checked = !item.Checked
		if err := tx.Groups().SetItemChecked(ctx, groupID, itemID, toggled.Checked); err != nil {
			return err
		}
		return tx.Groups().BumpVersion(ctx, groupID)
	})
	if err != nil {
		return domain.Item{}, err
	}

	s.publishGroup(ctx, groupID)
	return toggled, nil
}

// RenameItem replaces an item's name. Renaming to an empty name, or
// renaming an item that no longer exists, is a silent no-op: the edit form
// may legitimately race a concurrent delete and the result the user sees is
// the same either way.
func (s *ListService) RenameItem(ctx context.Context, uid, groupID, itemID, newName string) error {
	if err := s.requireMember(ctx, groupID, uid); err != nil {
		return err
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Groups().RenameItem(ctx, groupID, itemID, newName); err != nil {
			return err
		}
		return tx.Groups().BumpVersion(ctx, groupID)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	s.publishGroup(ctx, groupID)
	return nil
}

// DeleteItem removes one item from the active list.
func (s *ListService) DeleteItem(ctx context.Context, uid, groupID, itemID string) error {
	if err := s.requireMember(ctx, groupID, uid); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Groups().DeleteItem(ctx, groupID, itemID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		return tx.Groups().BumpVersion(ctx, groupID)
	})
	if err != nil {
		return err
	}

	s.publishGroup(ctx, groupID)
	return nil
}

// Checkout settles the currently checked items: it archives them as one
// priced history entry and removes them from the list, in a single
// transaction. The list is re-read inside the transaction, so history
// entries and list edits committed by other members in the meantime are
// never lost.
func (s *ListService) Checkout(ctx context.Context, uid, groupID, rawAmount, buyer string) (domain.Checkout, error) {
	log := slogx.FromContext(ctx)

	if err := s.requireMember(ctx, groupID, uid); err != nil {
		return domain.Checkout{}, err
	}

	amount, err := parseAmount(rawAmount)
	if err != nil {
		return domain.Checkout{}, err
	}

	if buyer == "" {
		return domain.Checkout{}, ErrInvalidArgument
	}

	var checkout domain.Checkout
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		items, err := tx.Groups().ListItems(ctx, groupID)
		if err != nil {
			return err
		}

		var (
			checkedIDs   []string
			checkedNames []string
		)
		for _, it := range items {
			if it.Checked {
				checkedIDs = append(checkedIDs, it.ID)
				checkedNames = append(checkedNames, it.Name)
			}
		}
		if len(checkedIDs) == 0 {
			return ErrNoCheckedItems
		}

		checkout = domain.Checkout{
			ID:     idx.New().String(),
			Amount: amount,
			Date:   time.Now().UTC().Format(time.RFC3339),
			Buyer:  buyer,
			Items:  checkedNames,
		}

		if err := tx.Groups().AppendCheckout(ctx, groupID, checkout); err != nil {
			return err
		}
		if err := tx.Groups().DeleteItems(ctx, groupID, checkedIDs); err != nil {
			return err
		}
		return tx.Groups().BumpVersion(ctx, groupID)
	})
	if err != nil {
		if !errors.Is(err, ErrNoCheckedItems) {
			log.Error("failed to settle checkout",
				slog.String("group_id", groupID),
				slog.Any("error", err),
			)
		}
		return domain.Checkout{}, err
	}

	log.Info("checkout settled",
		slog.String("group_id", groupID),
		slog.String("checkout_id", checkout.ID),
		slog.Float64("amount", checkout.Amount),
		slog.Int("items", len(checkout.Items)),
	)

	s.publishGroup(ctx, groupID)
	return checkout, nil
}

// parseAmount accepts a positive decimal in string form.
func parseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidAmount
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func (s *ListService) publishGroup(ctx context.Context, groupID string) {
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
