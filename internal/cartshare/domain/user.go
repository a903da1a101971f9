package domain

import "time"

// User is the account record owned by an authenticated identity. Groups is
// the user's ordered index of group memberships; Invites is the pending
// inbox. Both are mutated only through the membership service.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Groups    []GroupRef `json:"groups"`
	Invites   []Invite   `json:"invites"`
	CreatedAt time.Time  `json:"createdAt"`

	// Version increments on every mutation of the group index or the invite
	// inbox, so feed consumers can order snapshots of this record.
	Version int64 `json:"version"`
}

// SnapshotVersion reports where this snapshot sits in the record's commit
// order.
func (u User) SnapshotVersion() int64 { return u.Version }

// GroupRef is the lightweight entry a user keeps for each group they belong
// to, so listing a user's groups never has to load the group records.
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
