package service

import "errors"

// Typed failures surfaced to the transport layer. Handlers map these onto
// the stable wire codes; anything else is an internal error.
var (
	// Validation
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyItemName   = errors.New("item name is empty")
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrNoCheckedItems  = errors.New("no items are checked")

	// Permission
	ErrNotMember = errors.New("caller is not a member of this group")

	// Conflict
	ErrGroupNameTaken = errors.New("group name already used by this user")
	ErrAlreadyMember  = errors.New("user is already a member of this group")
	ErrAlreadyInvited = errors.New("user already has a pending invite for this group")
	ErrUserExists     = errors.New("user already exists")

	// Not found
	ErrUserNotFound    = errors.New("user not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrItemNotFound    = errors.New("item not found")
	ErrInviteeNotFound = errors.New("no user found with the provided email address")
)
