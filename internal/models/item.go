package models

import "time"

type Item struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// ItemPatch carries a partial item update; nil fields are left untouched.
type ItemPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

// ItemView is an item as shown to a particular viewer. The booking window
// is filled only when the viewer owns the item.
type ItemView struct {
	Item
	BookingWindow
}
