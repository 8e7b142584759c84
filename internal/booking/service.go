package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/localserve/marketplace-backend/internal/catalog"
	"github.com/localserve/marketplace-backend/internal/events"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

type Service interface {
	// Create books a slot for the user. The returned error is a
	// *SlotConflictError when the slot already holds an active booking.
	Create(ctx context.Context, userID, serviceID string, date time.Time, slot TimeSlot) (*Booking, error)

	// BookedSlots returns the occupied slots for a service on the given date.
	BookedSlots(ctx context.Context, serviceID string, date time.Time) ([]TimeSlot, error)

	// Availability builds a refreshed tracker for the service's slots on the
	// given date, for use by streaming consumers.
	Availability(ctx context.Context, serviceID string, date time.Time) (*AvailabilityTracker, error)

	GetByID(ctx context.Context, id string, actor Actor) (*Booking, error)
	List(ctx context.Context, filter Filter, actor Actor) ([]*Booking, int, error)
	UpdateStatus(ctx context.Context, id string, actor Actor, status Status) (*Booking, error)
}

type bookingService struct {
	repo    Repository
	catalog catalog.Catalog
	pub     events.Publisher
	logger  zerolog.Logger

	// nowFn is swapped in tests to pin the booking window.
	nowFn func() time.Time
}

func NewService(repo Repository, cat catalog.Catalog, pub events.Publisher, logger zerolog.Logger) Service {
	return &bookingService{
		repo:    repo,
		catalog: cat,
		pub:     pub,
		logger:  logger,
		nowFn:   time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, userID, serviceID string, date time.Time, slot TimeSlot) (*Booking, error) {
	if date.IsZero() || slot == "" {
		return nil, ErrMissingSelection
	}
	if !slot.Valid() {
		return nil, ErrInvalidSlot
	}
	if !withinBookingWindow(date, s.nowFn()) {
		return nil, ErrDateOutOfRange
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	// Pre-check so the common double-booking case gets a precise message.
	// The unique index remains the authoritative guard for races.
	existing, err := s.repo.FindActiveSlot(ctx, svc.ProviderID, svc.ID, date, slot)
	if err == nil {
		return nil, &SlotConflictError{Existing: existing.Status}
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check slot availability failed: %w", err)
	}

	b := &Booking{
		UserID:        userID,
		ProviderID:    svc.ProviderID,
		ServiceID:     svc.ID,
		BookingDate:   date,
		PreferredTime: slot,
		Status:        StatusPending,
		TotalAmount:   svc.Price,
		ServiceName:   svc.Name,
	}
	if svc.Provider != nil {
		b.ProviderName = svc.Provider.BusinessName
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, s.conflictFor(ctx, svc.ProviderID, svc.ID, date, slot)
		}
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("service_id", b.ServiceID).
		Str("date", date.Format(DateFormat)).
		Str("slot", string(slot)).
		Msg("booking created")

	s.pub.Publish(events.Event{
		Type:      events.BookingCreated,
		Table:     "bookings",
		Timestamp: s.nowFn().UTC(),
		New:       rowSnapshot(b),
	})

	return b, nil
}

// conflictFor builds the conflict error for a slot that lost the insert race.
// If the winning row cannot be read back, the generic "booked" wording is used.
func (s *bookingService) conflictFor(ctx context.Context, providerID, serviceID string, date time.Time, slot TimeSlot) error {
	winner, err := s.repo.FindActiveSlot(ctx, providerID, serviceID, date, slot)
	if err != nil {
		return &SlotConflictError{Existing: StatusPending}
	}
	return &SlotConflictError{Existing: winner.Status}
}

func (s *bookingService) BookedSlots(ctx context.Context, serviceID string, date time.Time) ([]TimeSlot, error) {
	if date.IsZero() {
		return nil, ErrMissingSelection
	}
	if !withinBookingWindow(date, s.nowFn()) {
		return nil, ErrDateOutOfRange
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	return s.repo.BookedSlots(ctx, svc.ProviderID, svc.ID, date)
}

func (s *bookingService) Availability(ctx context.Context, serviceID string, date time.Time) (*AvailabilityTracker, error) {
	if date.IsZero() {
		return nil, ErrMissingSelection
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	tracker := NewAvailabilityTracker(s, svc.ProviderID, svc.ID, date)
	if err := tracker.Refresh(ctx); err != nil {
		return nil, err
	}
	return tracker, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string, actor Actor) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, b, actor); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, filter Filter, actor Actor) ([]*Booking, int, error) {
	// Non-admin users only ever see their own bookings.
	if !actor.IsAdmin {
		filter.UserID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

func (s *bookingService) UpdateStatus(ctx context.Context, id string, actor Actor, status Status) (*Booking, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsAdmin:
		// Admins may set any status.
	case b.UserID == actor.UserID:
		// Customers may only cancel, and only before the work is done.
		if status != StatusCancelled {
			return nil, ErrPermissionDenied
		}
		if !b.CanBeCancelled() {
			return nil, ErrInvalidStatus
		}
	default:
		owner, err := s.isProviderUser(ctx, b.ProviderID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !owner {
			return nil, ErrPermissionDenied
		}
		// Providers move bookings forward or cancel them, but never
		// reopen a cancelled booking.
		if b.Status == StatusCancelled {
			return nil, ErrInvalidStatus
		}
	}

	old := rowSnapshot(b)

	updatedAt, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	b.Status = status
	b.UpdatedAt = updatedAt

	s.logger.Info().
		Str("booking_id", b.ID).
		Str("status", string(status)).
		Msg("booking status updated")

	s.pub.Publish(events.Event{
		Type:      events.BookingUpdated,
		Table:     "bookings",
		Timestamp: s.nowFn().UTC(),
		New:       rowSnapshot(b),
		Old:       old,
	})

	return b, nil
}

func (s *bookingService) authorize(ctx context.Context, b *Booking, actor Actor) error {
	if actor.IsAdmin || b.UserID == actor.UserID {
		return nil
	}
	owner, err := s.isProviderUser(ctx, b.ProviderID, actor.UserID)
	if err != nil {
		return err
	}
	if !owner {
		return ErrPermissionDenied
	}
	return nil
}

func (s *bookingService) isProviderUser(ctx context.Context, providerID, userID string) (bool, error) {
	p, err := s.catalog.GetProvider(ctx, providerID)
	if err != nil {
		return false, fmt.Errorf("resolve booking provider failed: %w", err)
	}
	return p.UserID == userID, nil
}

func rowSnapshot(b *Booking) *events.BookingRow {
	return &events.BookingRow{
		ID:            b.ID,
		UserID:        b.UserID,
		ProviderID:    b.ProviderID,
		ServiceID:     b.ServiceID,
		BookingDate:   b.BookingDate.Format(DateFormat),
		PreferredTime: string(b.PreferredTime),
		Status:        string(b.Status),
	}
}
