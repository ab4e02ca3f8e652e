package api

import (
	"net/http"
	"strconv"
	"time"

	"shareit/internal/models"
)

type bookingRequest struct {
	ItemID int64  `json:"itemId"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type bookingResponse struct {
	ID     int64                `json:"id"`
	Start  time.Time            `json:"start"`
	End    time.Time            `json:"end"`
	Status models.BookingStatus `json:"status"`
	Booker bookingBooker        `json:"booker"`
	Item   bookingItem          `json:"item"`
}

type bookingBooker struct {
	ID int64 `json:"id"`
}

type bookingItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toBookingResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:     b.ID,
		Start:  b.Start,
		End:    b.End,
		Status: b.Status,
		Booker: bookingBooker{ID: b.BookerID},
		Item:   bookingItem{ID: b.ItemID, Name: b.ItemName},
	}
}

func toBookingResponses(bookings []*models.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	return out
}

func (s *HTTPServer) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body bookingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, err := models.ParseTimestamp(body.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := models.ParseTimestamp(body.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.services.Bookings.AddBooking(r.Context(), userID, models.NewBooking{
		ItemID: body.ItemID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleSetApproval(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	approved, err := strconv.ParseBool(r.URL.Query().Get("approved"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved must be true or false")
		return
	}

	booking, err := s.services.Bookings.SetApproval(r.Context(), userID, bookingID, approved)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.services.Bookings.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(booking))
}

func (s *HTTPServer) handleListForBooker(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.services.Bookings.ListForBooker(r.Context(), userID, stateParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (s *HTTPServer) handleListForOwner(w http.ResponseWriter, r *http.Request) {
	userID, err := actorID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.services.Bookings.ListForOwner(r.Context(), userID, stateParam(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

// stateParam defaults to ALL. Unknown tokens are passed through unchanged.
func stateParam(r *http.Request) models.BookingState {
	state := r.URL.Query().Get("state")
	if state == "" {
		return models.StateAll
	}
	return models.BookingState(state)
}
