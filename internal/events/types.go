// Package events implements the in-process change feed for booking rows.
//
// Repository writes publish row-level events into a Broker, which fans them
// out to registered subscribers (SSE availability streams). Delivery order is
// not guaranteed and events may be dropped for slow subscribers; consumers
// must re-derive state from the store instead of applying deltas.
package events

import "time"

// Type identifies the kind of row change an event describes.
type Type string

const (
	BookingCreated Type = "booking.created"
	BookingUpdated Type = "booking.updated"
	BookingDeleted Type = "booking.deleted"
)

// BookingRow is the snapshot of a booking row carried by an event.
// Dates use the YYYY-MM-DD wire format.
type BookingRow struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	ProviderID    string `json:"provider_id"`
	ServiceID     string `json:"service_id"`
	BookingDate   string `json:"booking_date"`
	PreferredTime string `json:"preferred_time"`
	Status        string `json:"status"`
}

// Event is a single change-feed entry. New is nil for deletes, Old is nil
// for inserts; updates carry both.
type Event struct {
	Type      Type        `json:"type"`
	Table     string      `json:"table"`
	Timestamp time.Time   `json:"timestamp"`
	New       *BookingRow `json:"new,omitempty"`
	Old       *BookingRow `json:"old,omitempty"`
}

// Row returns whichever snapshot is present, preferring New.
// Handlers use it to match events against their provider+service topic.
func (e Event) Row() *BookingRow {
	if e.New != nil {
		return e.New
	}
	return e.Old
}
