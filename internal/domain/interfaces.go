package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UserExists(ctx context.Context, id int64) (bool, error)
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	GetItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchAvailableItems(ctx context.Context, text string) ([]*models.Item, error)
}

// BookingRepository is the persistence contract of the lifecycle engine.
// Every returned booking carries the item name and owner id read at load time.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	// TransitionBookingStatus moves the booking from one status to another
	// atomically. It fails with ErrConcurrentModification when the stored
	// status is no longer from.
	TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error
	ExistsCompletedBooking(ctx context.Context, bookerID, itemID int64, status models.BookingStatus, before time.Time) (bool, error)
	GetOwnerBookingDates(ctx context.Context, ownerID int64) ([]models.BookingDates, error)
	GetItemBookingDates(ctx context.Context, itemID int64) ([]models.BookingDates, error)
}

// Repository is the full store surface used by the core process.
type Repository interface {
	UserRepository
	ItemRepository
	BookingRepository
	PingContext(ctx context.Context) error
	Close() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// RateLimiter counts requests per user in fixed windows.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}
