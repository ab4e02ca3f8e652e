package models

import "time"

// BookingRole says whose bookings a filter selects.
type BookingRole string

const (
	RoleBooker BookingRole = "booker"
	RoleOwner  BookingRole = "owner"
)

// TimeWindow restricts bookings relative to BookingFilter.Now.
type TimeWindow string

const (
	WindowAny     TimeWindow = ""
	WindowCurrent TimeWindow = "current" // start <= now <= end
	WindowPast    TimeWindow = "past"    // end < now
	WindowFuture  TimeWindow = "future"  // start > now
)

type BookingFilter struct {
	Role    BookingRole
	ActorID int64
	Window  TimeWindow
	Now     time.Time
	Status  BookingStatus // empty means any status
}
