package domain

import "time"

// Group is the shared unit of membership, active shopping list and
// settlement history.
type Group struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreationDate time.Time  `json:"creationDate"`
	Members      []Member   `json:"members"`
	ShoppingList []Item     `json:"shoppingList"`
	History      []Checkout `json:"history"`

	// Version increments on every committed mutation of the group. Targeted
	// item updates mean two members can edit concurrently without clobbering
	// each other; the counter lets clients and feed consumers order
	// snapshots of the record.
	Version int64 `json:"version"`
}

// SnapshotVersion reports where this snapshot sits in the record's commit
// order.
func (g Group) SnapshotVersion() int64 { return g.Version }

// Member is a user's association with a group.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinDate time.Time `json:"joinDate"`
}

// Item is one entry on the active shopping list. The ID is assigned at
// creation and is the only thing mutations match on, so duplicate names are
// never ambiguous.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// Checkout archives a settled purchase. Once written it is never edited or
// deleted; Items holds the item names as they read at settlement time. Date
// is kept as the RFC 3339 string that was recorded: history rows written by
// old clients may carry dates we cannot parse, and aggregation must skip
// those instead of refusing the whole read.
type Checkout struct {
	ID     string   `json:"id"`
	Amount float64  `json:"amount"`
	Date   string   `json:"date"`
	Buyer  string   `json:"buyer"`
	Items  []string `json:"items"`
}
