package http

import (
	"time"

	"github.com/localserve/marketplace-backend/internal/booking"
	"github.com/localserve/marketplace-backend/internal/pkg/request"
)

type BookingResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ProviderID    string    `json:"provider_id"`
	ServiceID     string    `json:"service_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	ProviderName  string    `json:"provider_name,omitempty"`
	BookingDate   string    `json:"booking_date"`
	PreferredTime string    `json:"preferred_time"`
	Status        string    `json:"status"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		ProviderID:    b.ProviderID,
		ServiceID:     b.ServiceID,
		ServiceName:   b.ServiceName,
		ProviderName:  b.ProviderName,
		BookingDate:   b.BookingDate.Format(booking.DateFormat),
		PreferredTime: string(b.PreferredTime),
		Status:        string(b.Status),
		TotalAmount:   b.TotalAmount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// CreateBookingRequest is the payload for booking a slot. Date and slot are
// not marked required here so the service can answer an empty selection with
// its own message instead of a generic binding error.
type CreateBookingRequest struct {
	ServiceID     string `json:"service_id" binding:"required,uuid"`
	BookingDate   string `json:"booking_date"`
	PreferredTime string `json:"preferred_time"`
}

// ListBookingsRequest defines query parameters for the booking list.
type ListBookingsRequest struct {
	request.ListParams
	Status    string `form:"status" binding:"omitempty,oneof=pending confirmed completed cancelled"`
	ServiceID string `form:"service_id" binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// UpdateBookingRequest changes a booking's status.
type UpdateBookingRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}

// BookedSlotsResponse lists the occupied and free slots of a service day.
type BookedSlotsResponse struct {
	Date           string   `json:"date"`
	BookedSlots    []string `json:"booked_slots"`
	AvailableSlots []string `json:"available_slots"`
}

// ConflictResponse is returned with HTTP 409 when a slot is taken. Status
// carries the occupying booking's state so clients can word their own UI.
type ConflictResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func slotStrings(slots []booking.TimeSlot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, string(s))
	}
	return out
}
