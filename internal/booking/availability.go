package booking

import (
	"context"
	"time"

	"github.com/localserve/marketplace-backend/internal/events"
)

// SlotQuerier is the read surface the availability tracker depends on.
type SlotQuerier interface {
	BookedSlots(ctx context.Context, serviceID string, date time.Time) ([]TimeSlot, error)
}

// AvailabilityTracker follows the occupied slots of one (service, date) pair.
// Change-feed events are used only as a trigger to re-query the store; the
// tracker never applies event payloads as deltas. When a refresh fails the
// last known snapshot is retained.
type AvailabilityTracker struct {
	providerID string
	serviceID  string
	date       time.Time
	querier    SlotQuerier

	booked []TimeSlot
}

func NewAvailabilityTracker(querier SlotQuerier, providerID, serviceID string, date time.Time) *AvailabilityTracker {
	return &AvailabilityTracker{
		providerID: providerID,
		serviceID:  serviceID,
		date:       date,
		querier:    querier,
	}
}

// Matches reports whether the event concerns this tracker's service and date.
func (t *AvailabilityTracker) Matches(ev events.Event) bool {
	if ev.Table != "bookings" {
		return false
	}
	row := ev.Row()
	if row == nil {
		return false
	}
	return row.ProviderID == t.providerID &&
		row.ServiceID == t.serviceID &&
		row.BookingDate == t.date.Format(DateFormat)
}

// Refresh re-queries the occupied slots. On failure the previous snapshot
// stays in place and the error is returned to the caller.
func (t *AvailabilityTracker) Refresh(ctx context.Context) error {
	slots, err := t.querier.BookedSlots(ctx, t.serviceID, t.date)
	if err != nil {
		return err
	}
	t.booked = slots
	return nil
}

// Booked returns the occupied slots from the last successful refresh.
func (t *AvailabilityTracker) Booked() []TimeSlot {
	return t.booked
}

// Available returns the fixed slots that are not occupied.
func (t *AvailabilityTracker) Available() []TimeSlot {
	occupied := make(map[TimeSlot]bool, len(t.booked))
	for _, s := range t.booked {
		occupied[s] = true
	}

	var free []TimeSlot
	for _, s := range AllSlots() {
		if !occupied[s] {
			free = append(free, s)
		}
	}
	return free
}
