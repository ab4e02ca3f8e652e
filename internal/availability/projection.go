// Package availability derives the last and next booking of an item relative to now.
package availability

import (
	"time"

	"shareit/internal/models"
)

// Project scans one item's bookings in ascending start order. A booking that
// has ended moves LastBooking forward; the first booking that starts after
// now becomes NextBooking and ends the scan. Bookings in progress count for neither.
func Project(dates []models.BookingDates, now time.Time) models.BookingWindow {
	var window models.BookingWindow
	for _, d := range dates {
		if d.End.Before(now) {
			end := d.End
			window.LastBooking = &end
			continue
		}
		if d.Start.After(now) {
			start := d.Start
			window.NextBooking = &start
			break
		}
	}
	return window
}

// ProjectByItem groups tuples ordered by (item, start) and projects each item.
// Items without bookings are absent from the result.
func ProjectByItem(dates []models.BookingDates, now time.Time) map[int64]models.BookingWindow {
	windows := make(map[int64]models.BookingWindow)
	for i := 0; i < len(dates); {
		j := i
		for j < len(dates) && dates[j].ItemID == dates[i].ItemID {
			j++
		}
		windows[dates[i].ItemID] = Project(dates[i:j], now)
		i = j
	}
	return windows
}
