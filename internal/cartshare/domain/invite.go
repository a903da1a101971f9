package domain

import "time"

// Invite is a pending, single-recipient offer of group membership. It lives
// in the invitee's inbox and is consumed exactly once, by accept or decline.
type Invite struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"` // invitee
	GroupID     string    `json:"groupId"`
	GroupName   string    `json:"groupName"`
	InviterID   string    `json:"inviterId"`
	InviterName string    `json:"inviterName"`
	CreatedAt   time.Time `json:"createdAt"`
}
