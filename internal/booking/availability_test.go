package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localserve/marketplace-backend/internal/events"
)

type stubSlotQuerier struct {
	slots []TimeSlot
	err   error
	calls int
}

func (q *stubSlotQuerier) BookedSlots(context.Context, string, time.Time) ([]TimeSlot, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	return q.slots, nil
}

func trackerEvent(providerID, serviceID, date string) events.Event {
	return events.Event{
		Type:  events.BookingCreated,
		Table: "bookings",
		New: &events.BookingRow{
			ProviderID:  providerID,
			ServiceID:   serviceID,
			BookingDate: date,
		},
	}
}

func TestAvailabilityTrackerMatches(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tracker := NewAvailabilityTracker(&stubSlotQuerier{}, "prov-1", "svc-1", date)

	tests := []struct {
		name string
		ev   events.Event
		want bool
	}{
		{"same service and date", trackerEvent("prov-1", "svc-1", "2025-06-10"), true},
		{"different date", trackerEvent("prov-1", "svc-1", "2025-06-11"), false},
		{"different service", trackerEvent("prov-1", "svc-2", "2025-06-10"), false},
		{"different provider", trackerEvent("prov-2", "svc-1", "2025-06-10"), false},
		{"wrong table", events.Event{Table: "users", New: &events.BookingRow{}}, false},
		{"no row", events.Event{Table: "bookings"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tracker.Matches(tt.ev))
		})
	}
}

func TestAvailabilityTrackerMatchesDeleteEvents(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	tracker := NewAvailabilityTracker(&stubSlotQuerier{}, "prov-1", "svc-1", date)

	// Deletes only carry the old snapshot.
	ev := events.Event{
		Type:  events.BookingDeleted,
		Table: "bookings",
		Old: &events.BookingRow{
			ProviderID:  "prov-1",
			ServiceID:   "svc-1",
			BookingDate: "2025-06-10",
		},
	}
	assert.True(t, tracker.Matches(ev))
}

func TestAvailabilityTrackerRefresh(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	querier := &stubSlotQuerier{slots: []TimeSlot{SlotMorning}}
	tracker := NewAvailabilityTracker(querier, "prov-1", "svc-1", date)

	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Equal(t, []TimeSlot{SlotMorning}, tracker.Booked())
	assert.Equal(t, []TimeSlot{SlotAfternoon, SlotEvening}, tracker.Available())

	// A failed refresh keeps the previous snapshot.
	querier.err = errors.New("connection reset")
	err := tracker.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, []TimeSlot{SlotMorning}, tracker.Booked())

	// Recovery picks up the new picture.
	querier.err = nil
	querier.slots = []TimeSlot{SlotMorning, SlotEvening}
	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Equal(t, []TimeSlot{SlotAfternoon}, tracker.Available())
}

func TestAvailabilityTrackerFullDay(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	querier := &stubSlotQuerier{slots: AllSlots()}
	tracker := NewAvailabilityTracker(querier, "prov-1", "svc-1", date)

	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Empty(t, tracker.Available())
}
