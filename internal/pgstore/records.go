package pgstore

import (
	"time"

	"shareit/internal/models"
)

type userRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string { return "users" }

func (r userRecord) toModel() *models.User {
	return &models.User{ID: r.ID, Name: r.Name, Email: r.Email, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type itemRecord struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID     int64  `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Description string `gorm:"not null"`
	Available   bool   `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Owner *userRecord `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT"`
}

func (itemRecord) TableName() string { return "items" }

func (r itemRecord) toModel() *models.Item {
	return &models.Item{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Description: r.Description,
		Available:   r.Available,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type bookingRecord struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ItemID    int64     `gorm:"not null;index:idx_bookings_item_start,priority:1"`
	BookerID  int64     `gorm:"not null;index:idx_bookings_booker_start,priority:1"`
	StartTime time.Time `gorm:"not null;index:idx_bookings_item_start,priority:2;index:idx_bookings_booker_start,priority:2"`
	EndTime   time.Time `gorm:"not null"`
	Status    string    `gorm:"not null;size:16;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64 `gorm:"not null"`

	// associations exist for the foreign keys only and are never loaded
	Item   *itemRecord `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	Booker *userRecord `gorm:"foreignKey:BookerID;constraint:OnDelete:RESTRICT"`
}

func (bookingRecord) TableName() string { return "bookings" }

// bookingRow is a booking joined with the item columns it carries.
type bookingRow struct {
	ID        int64
	ItemID    int64
	ItemName  string
	OwnerID   int64
	BookerID  int64
	StartTime time.Time
	EndTime   time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

func (r bookingRow) toModel() *models.Booking {
	return &models.Booking{
		ID:        r.ID,
		ItemID:    r.ItemID,
		ItemName:  r.ItemName,
		OwnerID:   r.OwnerID,
		BookerID:  r.BookerID,
		Start:     r.StartTime.UTC(),
		End:       r.EndTime.UTC(),
		Status:    models.BookingStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}
