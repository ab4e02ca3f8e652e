package pgstore

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/database"
	"shareit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) bookingQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("bookings AS b").
		Select(`b.id, b.item_id, i.name AS item_name, i.owner_id, b.booker_id, b.start_time, b.end_time,
			b.status, b.created_at, b.updated_at, b.version`).
		Joins("JOIN items AS i ON i.id = b.item_id")
}

func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	rec := bookingRecord{
		ItemID:    booking.ItemID,
		BookerID:  booking.BookerID,
		StartTime: booking.Start.UTC(),
		EndTime:   booking.End.UTC(),
		Status:    string(booking.Status),
		Version:   1,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", translateError(err))
	}
	booking.ID = rec.ID
	booking.CreatedAt = rec.CreatedAt
	booking.UpdatedAt = rec.UpdatedAt
	booking.Version = rec.Version
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var row bookingRow
	res := s.bookingQuery(ctx).Where("b.id = ?", id).Limit(1).Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, database.ErrNotFound)
	}
	return row.toModel(), nil
}

func (s *Store) FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	q := s.bookingQuery(ctx)

	switch filter.Role {
	case models.RoleBooker:
		q = q.Where("b.booker_id = ?", filter.ActorID)
	case models.RoleOwner:
		q = q.Where("i.owner_id = ?", filter.ActorID)
	default:
		return nil, fmt.Errorf("unknown booking role %q", filter.Role)
	}

	now := filter.Now.UTC()
	switch filter.Window {
	case models.WindowAny:
	case models.WindowCurrent:
		q = q.Where("b.start_time <= ? AND b.end_time >= ?", now, now)
	case models.WindowPast:
		q = q.Where("b.end_time < ?", now)
	case models.WindowFuture:
		q = q.Where("b.start_time > ?", now)
	default:
		return nil, fmt.Errorf("unknown time window %q", filter.Window)
	}

	if filter.Status != "" {
		q = q.Where("b.status = ?", string(filter.Status))
	}

	var rows []bookingRow
	if err := q.Order("b.start_time DESC, b.id DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*models.Booking, 0, len(rows))
	for _, r := range rows {
		bookings = append(bookings, r.toModel())
	}
	return bookings, nil
}

// TransitionBookingStatus locks the booking row for the read-check-write.
func (s *Store) TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec bookingRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error; err != nil {
			return translateError(err)
		}
		if models.BookingStatus(rec.Status) != from {
			return database.ErrConcurrentModification
		}
		res := tx.Model(&bookingRecord{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(map[string]interface{}{
				"status":     string(to),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update booking status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return database.ErrConcurrentModification
		}
		return nil
	})
}

func (s *Store) ExistsCompletedBooking(ctx context.Context, bookerID, itemID int64, status models.BookingStatus, before time.Time) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&bookingRecord{}).
		Where("booker_id = ? AND item_id = ? AND status = ? AND end_time < ?", bookerID, itemID, string(status), before.UTC()).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return n > 0, nil
}

type datesRow struct {
	ItemID    int64
	StartTime time.Time
	EndTime   time.Time
}

func (s *Store) GetOwnerBookingDates(ctx context.Context, ownerID int64) ([]models.BookingDates, error) {
	var rows []datesRow
	err := s.db.WithContext(ctx).
		Table("bookings AS b").
		Select("b.item_id, b.start_time, b.end_time").
		Joins("JOIN items AS i ON i.id = b.item_id").
		Where("i.owner_id = ?", ownerID).
		Order("b.item_id ASC, b.start_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query booking dates: %w", err)
	}
	return toDates(rows), nil
}

func (s *Store) GetItemBookingDates(ctx context.Context, itemID int64) ([]models.BookingDates, error) {
	var rows []datesRow
	err := s.db.WithContext(ctx).
		Model(&bookingRecord{}).
		Select("item_id, start_time, end_time").
		Where("item_id = ?", itemID).
		Order("start_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query booking dates: %w", err)
	}
	return toDates(rows), nil
}

func toDates(rows []datesRow) []models.BookingDates {
	dates := make([]models.BookingDates, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, models.BookingDates{ItemID: r.ItemID, Start: r.StartTime.UTC(), End: r.EndTime.UTC()})
	}
	return dates
}
