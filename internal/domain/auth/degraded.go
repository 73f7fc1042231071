package auth

import (
	"slices"
	"time"

	"github.com/target/todo-platform/internal/domain/model"
)

// DegradedDataset is the fixed substitute listing shown while the user directory
// is unreachable. It is immutable after construction; accessors return copies.
type DegradedDataset struct {
	users  []model.User
	admins map[int64]bool
}

// NewDegradedDataset builds a dataset from users and the ids flagged as admin.
func NewDegradedDataset(users []model.User, adminIDs ...int64) *DegradedDataset {
	d := &DegradedDataset{
		users:  slices.Clone(users),
		admins: make(map[int64]bool, len(users)),
	}
	for _, u := range users {
		d.admins[u.ID] = false
	}
	for _, id := range adminIDs {
		d.admins[id] = true
	}
	return d
}

// DefaultDegradedDataset returns the stock admin/user substitute listing.
func DefaultDegradedDataset() *DegradedDataset {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return NewDegradedDataset([]model.User{
		{ID: 1, Username: "admin", Email: "admin@example.com", Status: model.UserStatusActive, CreatedAt: created, UpdatedAt: created},
		{ID: 2, Username: "user", Email: "user@example.com", Status: model.UserStatusActive, CreatedAt: created, UpdatedAt: created},
	}, 1)
}

// Users returns a copy of the substitute user listing.
func (d *DegradedDataset) Users() []model.User {
	if d == nil {
		return nil
	}
	return slices.Clone(d.users)
}

// IsAdmin reports whether userID is in the fixed admin set.
func (d *DegradedDataset) IsAdmin(userID int64) bool {
	if d == nil {
		return false
	}
	return d.admins[userID]
}

// AdminFlags returns a copy of the admin map keyed by user id.
func (d *DegradedDataset) AdminFlags() map[int64]bool {
	out := make(map[int64]bool)
	if d == nil {
		return out
	}
	for id, v := range d.admins {
		out[id] = v
	}
	return out
}
