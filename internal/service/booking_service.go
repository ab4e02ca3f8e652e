package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// DateGuard optionally rejects bookings that start or end in the past.
// Tolerance absorbs clock skew between the client and the server.
type DateGuard struct {
	Enabled   bool
	Tolerance time.Duration
}

type BookingService struct {
	repo      domain.BookingRepository
	directory *Directory
	eventBus  domain.EventPublisher
	clock     domain.Clock
	guard     DateGuard
	logger    *zerolog.Logger
}

func NewBookingService(
	repo domain.BookingRepository,
	directory *Directory,
	eventBus domain.EventPublisher,
	clock domain.Clock,
	guard DateGuard,
	logger *zerolog.Logger,
) *BookingService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &BookingService{
		repo:      repo,
		directory: directory,
		eventBus:  eventBus,
		clock:     clock,
		guard:     guard,
		logger:    logger,
	}
}

const msgStatusNotWaiting = "booking status must be WAITING"

// stateFilters maps each listing selector onto a store filter.
var stateFilters = map[models.BookingState]func(models.BookingFilter) models.BookingFilter{
	models.StateAll: func(f models.BookingFilter) models.BookingFilter {
		return f
	},
	models.StateCurrent: func(f models.BookingFilter) models.BookingFilter {
		f.Window = models.WindowCurrent
		return f
	},
	models.StatePast: func(f models.BookingFilter) models.BookingFilter {
		f.Window = models.WindowPast
		return f
	},
	models.StateFuture: func(f models.BookingFilter) models.BookingFilter {
		f.Window = models.WindowFuture
		return f
	},
	models.StateWaiting: func(f models.BookingFilter) models.BookingFilter {
		f.Status = models.StatusWaiting
		return f
	},
	models.StateRejected: func(f models.BookingFilter) models.BookingFilter {
		f.Status = models.StatusRejected
		return f
	},
}

func (s *BookingService) AddBooking(ctx context.Context, requesterID int64, req models.NewBooking) (*models.Booking, error) {
	if _, err := s.directory.FindUser(ctx, requesterID); err != nil {
		return nil, err
	}

	item, err := s.directory.FindItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if !item.Available {
		s.logger.Warn().Int64("item_id", item.ID).Int64("requester_id", requesterID).Msg("item is not available")
		return nil, domain.BusinessRule("item %d is not available for booking", item.ID)
	}

	if err := s.ValidateDates(req.Start, req.End); err != nil {
		s.logger.Warn().Err(err).Int64("item_id", item.ID).Msg("invalid booking dates")
		return nil, err
	}

	booking := &models.Booking{
		ItemID:   item.ID,
		ItemName: item.Name,
		OwnerID:  item.OwnerID,
		BookerID: requesterID,
		Start:    req.Start,
		End:      req.End,
		Status:   models.StatusWaiting,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("item_id", item.ID).Msg("create booking failed")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingTransition(string(models.StatusWaiting))
	s.publishEvent(events.EventBookingCreated, booking, requesterID)

	s.logger.Info().Int64("booking_id", booking.ID).Int64("item_id", item.ID).Int64("booker_id", requesterID).Msg("booking created")
	return booking, nil
}

// ValidateDates enforces a strictly positive interval and, when enabled, the past-date guard.
func (s *BookingService) ValidateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domain.InvalidDate("booking start and end are required")
	}
	if start.Equal(end) {
		return domain.InvalidDate("booking start and end must differ")
	}
	if end.Before(start) {
		return domain.InvalidDate("booking end must be after start")
	}

	if s.guard.Enabled {
		cutoff := s.clock.Now().Add(-s.guard.Tolerance)
		if start.Before(cutoff) || end.Before(cutoff) {
			return domain.InvalidDate("booking dates must not be in the past")
		}
	}
	return nil
}

func (s *BookingService) SetApproval(ctx context.Context, actorID, bookingID int64, approved bool) (*models.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.OwnerID != actorID {
		s.logger.Warn().Int64("booking_id", bookingID).Int64("actor_id", actorID).Msg("approval by non-owner")
		return nil, domain.Forbidden("user %d is not the owner of item %d", actorID, booking.ItemID)
	}

	next := models.StatusRejected
	if approved {
		next = models.StatusApproved
	}
	if !booking.Status.CanTransitionTo(next) {
		s.logger.Warn().Int64("booking_id", bookingID).Str("status", booking.Status.String()).Msg("booking already decided")
		return nil, domain.Forbidden(msgStatusNotWaiting)
	}

	err = s.repo.TransitionBookingStatus(ctx, bookingID, booking.Status, next)
	switch {
	case errors.Is(err, database.ErrConcurrentModification):
		s.logger.Warn().Int64("booking_id", bookingID).Msg("booking decided concurrently")
		return nil, domain.Forbidden(msgStatusNotWaiting)
	case errors.Is(err, database.ErrNotFound):
		return nil, domain.NotFound("booking %d not found", bookingID)
	case err != nil:
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("update booking status failed")
		return nil, fmt.Errorf("update booking %d: %w", bookingID, err)
	}

	booking.Status = next
	booking.Version++
	booking.UpdatedAt = s.clock.Now()

	metrics.IncBookingTransition(string(next))
	eventType := events.EventBookingRejected
	if approved {
		eventType = events.EventBookingApproved
	}
	s.publishEvent(eventType, booking, actorID)

	s.logger.Info().Int64("booking_id", bookingID).Str("status", next.String()).Msg("booking decided")
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actorID, bookingID int64) (*models.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if actorID != booking.BookerID && actorID != booking.OwnerID {
		s.logger.Warn().Int64("booking_id", bookingID).Int64("actor_id", actorID).Msg("booking read by outsider")
		return nil, domain.Forbidden("user %d is neither the owner nor the booker of booking %d", actorID, bookingID)
	}
	return booking, nil
}

func (s *BookingService) ListForBooker(ctx context.Context, actorID int64, state models.BookingState) ([]*models.Booking, error) {
	return s.list(ctx, models.RoleBooker, actorID, state)
}

func (s *BookingService) ListForOwner(ctx context.Context, actorID int64, state models.BookingState) ([]*models.Booking, error) {
	return s.list(ctx, models.RoleOwner, actorID, state)
}

func (s *BookingService) list(ctx context.Context, role models.BookingRole, actorID int64, state models.BookingState) ([]*models.Booking, error) {
	if err := s.directory.RequireUser(ctx, actorID); err != nil {
		return nil, err
	}

	build, ok := stateFilters[state]
	if !ok {
		// unknown selectors match nothing
		s.logger.Debug().Str("state", string(state)).Msg("unknown booking state")
		return []*models.Booking{}, nil
	}

	filter := build(models.BookingFilter{Role: role, ActorID: actorID, Now: s.clock.Now()})
	bookings, err := s.repo.FindBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

func (s *BookingService) loadBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.NotFound("booking %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return booking, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		ItemName:    booking.ItemName,
		OwnerID:     booking.OwnerID,
		BookerID:    booking.BookerID,
		Status:      booking.Status.String(),
		Start:       booking.Start,
		End:         booking.End,
		ChangedByID: changedByID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
