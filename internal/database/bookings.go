package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/models"
)

// timeLayout is fixed-width so that stored timestamps order lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

const bookingSelect = `SELECT b.id, b.item_id, i.name, i.owner_id, b.booker_id, b.start_time, b.end_time,
	                 b.status, b.created_at, b.updated_at, b.version
              FROM bookings b
              JOIN items i ON i.id = b.item_id`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (item_id, booker_id, start_time, end_time, status, created_at, updated_at, version)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		formatTime(booking.Start),
		formatTime(booking.End),
		string(booking.Status),
		formatTime(now),
		formatTime(now),
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", translateError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := bookingSelect + ` WHERE b.id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, translateError(err))
	}
	return booking, nil
}

// FindBookings lists bookings of a booker or of an owner's items, newest start first.
func (db *DB) FindBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	var (
		where []string
		args  []interface{}
	)

	switch filter.Role {
	case models.RoleBooker:
		where = append(where, "b.booker_id = ?")
	case models.RoleOwner:
		where = append(where, "i.owner_id = ?")
	default:
		return nil, fmt.Errorf("unknown booking role %q", filter.Role)
	}
	args = append(args, filter.ActorID)

	now := formatTime(filter.Now)
	switch filter.Window {
	case models.WindowAny:
	case models.WindowCurrent:
		where = append(where, "b.start_time <= ? AND b.end_time >= ?")
		args = append(args, now, now)
	case models.WindowPast:
		where = append(where, "b.end_time < ?")
		args = append(args, now)
	case models.WindowFuture:
		where = append(where, "b.start_time > ?")
		args = append(args, now)
	default:
		return nil, fmt.Errorf("unknown time window %q", filter.Window)
	}

	if filter.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, string(filter.Status))
	}

	query := bookingSelect + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY b.start_time DESC, b.id DESC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// TransitionBookingStatus is a compare-and-set on status; the single UPDATE is atomic.
func (db *DB) TransitionBookingStatus(ctx context.Context, id int64, from, to models.BookingStatus) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, string(to), formatTime(time.Now()), id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConcurrentModification
}

func (db *DB) ExistsCompletedBooking(ctx context.Context, bookerID, itemID int64, status models.BookingStatus, before time.Time) (bool, error) {
	query := `SELECT EXISTS(
                SELECT 1 FROM bookings
                WHERE booker_id = ? AND item_id = ? AND status = ? AND end_time < ?
              )`
	var exists bool
	err := db.QueryRowContext(ctx, query, bookerID, itemID, string(status), formatTime(before)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completed booking: %w", err)
	}
	return exists, nil
}

func (db *DB) GetOwnerBookingDates(ctx context.Context, ownerID int64) ([]models.BookingDates, error) {
	query := `SELECT b.item_id, b.start_time, b.end_time
              FROM bookings b
              JOIN items i ON i.id = b.item_id
              WHERE i.owner_id = ?
              ORDER BY b.item_id ASC, b.start_time ASC`
	return db.queryBookingDates(ctx, query, ownerID)
}

func (db *DB) GetItemBookingDates(ctx context.Context, itemID int64) ([]models.BookingDates, error) {
	query := `SELECT item_id, start_time, end_time FROM bookings WHERE item_id = ? ORDER BY start_time ASC`
	return db.queryBookingDates(ctx, query, itemID)
}

func (db *DB) queryBookingDates(ctx context.Context, query string, args ...interface{}) ([]models.BookingDates, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking dates: %w", err)
	}
	defer rows.Close()

	dates := make([]models.BookingDates, 0)
	for rows.Next() {
		var d models.BookingDates
		var startStr, endStr string
		if err := rows.Scan(&d.ItemID, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("failed to scan booking dates: %w", err)
		}
		if d.Start, err = parseTime(startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start %s: %w", startStr, err)
		}
		if d.End, err = parseTime(endStr); err != nil {
			return nil, fmt.Errorf("failed to parse end %s: %w", endStr, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var status string
	var startStr, endStr, createdStr, updatedStr string
	err := row.Scan(&b.ID, &b.ItemID, &b.ItemName, &b.OwnerID, &b.BookerID, &startStr, &endStr,
		&status, &createdStr, &updatedStr, &b.Version)
	if err != nil {
		return nil, err
	}
	b.Status = models.BookingStatus(status)

	for _, f := range []struct {
		src string
		dst *time.Time
	}{
		{startStr, &b.Start},
		{endStr, &b.End},
		{createdStr, &b.CreatedAt},
		{updatedStr, &b.UpdatedAt},
	} {
		t, err := parseTime(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse booking time %s: %w", f.src, err)
		}
		*f.dst = t
	}
	return &b, nil
}
