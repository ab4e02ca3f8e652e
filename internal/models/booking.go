package models

import "time"

type Booking struct {
	ID        int64         `json:"id"`
	ItemID    int64         `json:"item_id"`
	ItemName  string        `json:"item_name"`
	OwnerID   int64         `json:"owner_id"`
	BookerID  int64         `json:"booker_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Version   int64         `json:"version"`
}

// NewBooking is the booking request as submitted by a booker.
type NewBooking struct {
	ItemID int64     `json:"itemId"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// BookingDates is the minimal projection of a booking used for availability.
type BookingDates struct {
	ItemID int64
	Start  time.Time
	End    time.Time
}

// BookingWindow holds the end of the latest finished booking and the start
// of the earliest upcoming one. Either may be nil.
type BookingWindow struct {
	LastBooking *time.Time `json:"lastBooking"`
	NextBooking *time.Time `json:"nextBooking"`
}
