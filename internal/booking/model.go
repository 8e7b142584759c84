package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/localserve/marketplace-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrMissingSelection = apperror.New(http.StatusBadRequest, "please select both date and time slot")
	ErrInvalidSlot      = apperror.New(http.StatusBadRequest, "unknown time slot")
	ErrDateOutOfRange   = apperror.New(http.StatusBadRequest, "booking date must be within the next 3 months")
)

// DateFormat is the wire format for booking dates (calendar date, no time).
const DateFormat = "2006-01-02"

// bookingWindowMonths bounds how far ahead a slot can be reserved.
const bookingWindowMonths = 3

// TimeSlot is one of the three fixed labeled intervals a booking may reserve.
// The labels double as stored values; they are a closed set, not a table.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "Morning (9 AM - 12 PM)"
	SlotAfternoon TimeSlot = "Afternoon (12 PM - 4 PM)"
	SlotEvening   TimeSlot = "Evening (4 PM - 8 PM)"
)

// AllSlots returns the fixed slot enumeration in display order.
func AllSlots() []TimeSlot {
	return []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}
}

// Valid reports whether s is one of the fixed slots.
func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotEvening:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether st is a known booking status.
func ValidStatus(st Status) bool {
	switch st {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Booking represents a reserved (provider, service, date, slot) tuple.
// TotalAmount is copied from the service price at creation time; later price
// changes do not affect existing bookings.
type Booking struct {
	ID            string // UUID
	UserID        string
	ProviderID    string
	ServiceID     string
	BookingDate   time.Time // calendar date, time component zero
	PreferredTime TimeSlot
	Status        Status
	TotalAmount   float64

	// Denormalized labels filled on joined reads.
	ServiceName  string
	ProviderName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the booking still occupies its slot.
// Any status other than cancelled keeps the slot unavailable.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled
}

// CanBeCancelled reports whether the booking may still be cancelled.
func (b *Booking) CanBeCancelled() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Filter defines parameters for listing bookings.
type Filter struct {
	UserID     string
	ProviderID string
	ServiceID  string
	Status     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// SlotConflictError reports that a non-cancelled booking already occupies the
// requested tuple. Existing carries that booking's status so the message can
// distinguish a completed slot from a merely booked one.
type SlotConflictError struct {
	Existing Status
}

// OccupiedAs returns the user-facing word for the conflicting state.
func (e *SlotConflictError) OccupiedAs() string {
	if e.Existing == StatusCompleted {
		return "completed"
	}
	return "booked"
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("this time slot is already %s, please select a different time", e.OccupiedAs())
}

// withinBookingWindow reports whether date falls in [today, today+3 months],
// comparing calendar dates in UTC and ignoring any time component.
func withinBookingWindow(date, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(today) && !d.After(today.AddDate(0, bookingWindowMonths, 0))
}
