package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localserve/marketplace-backend/internal/booking"
	"github.com/localserve/marketplace-backend/internal/events"
)

const testServiceID = "33333333-3333-3333-3333-333333333333"

type stubBookingService struct {
	booked         []booking.TimeSlot
	createErr      error
	created        *booking.Booking
	availabilityFn func(ctx context.Context, serviceID string, date time.Time) (*booking.AvailabilityTracker, error)
	lastCreate     struct {
		userID string
		date   time.Time
		slot   booking.TimeSlot
	}
}

func (s *stubBookingService) Create(_ context.Context, userID, _ string, date time.Time, slot booking.TimeSlot) (*booking.Booking, error) {
	s.lastCreate.userID = userID
	s.lastCreate.date = date
	s.lastCreate.slot = slot
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubBookingService) BookedSlots(context.Context, string, time.Time) ([]booking.TimeSlot, error) {
	return s.booked, nil
}

func (s *stubBookingService) Availability(ctx context.Context, serviceID string, date time.Time) (*booking.AvailabilityTracker, error) {
	if s.availabilityFn != nil {
		return s.availabilityFn(ctx, serviceID, date)
	}
	return nil, booking.ErrNotFound
}

func (s *stubBookingService) GetByID(context.Context, string, booking.Actor) (*booking.Booking, error) {
	return nil, booking.ErrNotFound
}

func (s *stubBookingService) List(context.Context, booking.Filter, booking.Actor) ([]*booking.Booking, int, error) {
	return nil, 0, nil
}

func (s *stubBookingService) UpdateStatus(context.Context, string, booking.Actor, booking.Status) (*booking.Booking, error) {
	return nil, booking.ErrNotFound
}

func newTestRouter(svc booking.Service) *gin.Engine {
	nop := zerolog.Nop()
	return newTestRouterWithBroker(svc, events.NewBroker(&nop))
}

func newTestRouterWithBroker(svc booking.Service, broker *events.Broker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Stand-in auth middleware with a fixed identity.
	fakeAuth := func(c *gin.Context) {
		c.Set("userID", "user-1")
		c.Next()
	}

	h := NewHandler(svc, broker, zerolog.Nop())
	RegisterRoutes(r.Group("/v1"), h, fakeAuth)
	return r
}

func TestBookedSlotsEndpoint(t *testing.T) {
	svc := &stubBookingService{booked: []booking.TimeSlot{booking.SlotMorning}}
	router := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/services/"+testServiceID+"/booked-slots?date=2025-06-10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp BookedSlotsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-06-10", resp.Date)
	assert.Equal(t, []string{string(booking.SlotMorning)}, resp.BookedSlots)
	assert.Equal(t, []string{
		string(booking.SlotAfternoon),
		string(booking.SlotEvening),
	}, resp.AvailableSlots)
}

func TestBookedSlotsEndpointValidation(t *testing.T) {
	router := newTestRouter(&stubBookingService{})

	tests := []struct {
		name string
		path string
	}{
		{"missing date", "/v1/services/" + testServiceID + "/booked-slots"},
		{"bad date", "/v1/services/" + testServiceID + "/booked-slots?date=10-06-2025"},
		{"bad uuid", "/v1/services/not-a-uuid/booked-slots?date=2025-06-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateBookingEndpoint(t *testing.T) {
	svc := &stubBookingService{
		created: &booking.Booking{
			ID:            "b-1",
			UserID:        "user-1",
			ServiceID:     testServiceID,
			BookingDate:   time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			PreferredTime: booking.SlotMorning,
			Status:        booking.StatusPending,
			TotalAmount:   499,
		},
	}
	router := newTestRouter(svc)

	body := `{"service_id":"` + testServiceID + `","booking_date":"2025-06-10","preferred_time":"` +
		string(booking.SlotMorning) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", svc.lastCreate.userID)
	assert.Equal(t, booking.SlotMorning, svc.lastCreate.slot)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "b-1", resp.ID)
	assert.Equal(t, "2025-06-10", resp.BookingDate)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 499.0, resp.TotalAmount)
}

func TestCreateBookingEndpointConflict(t *testing.T) {
	svc := &stubBookingService{
		createErr: &booking.SlotConflictError{Existing: booking.StatusCompleted},
	}
	router := newTestRouter(svc)

	body := `{"service_id":"` + testServiceID + `","booking_date":"2025-06-10","preferred_time":"` +
		string(booking.SlotMorning) + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var resp ConflictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	assert.Contains(t, resp.Error, "already completed")
}

func TestCreateBookingEndpointMissingSelection(t *testing.T) {
	svc := &stubBookingService{createErr: booking.ErrMissingSelection}
	router := newTestRouter(svc)

	// Date and slot omitted entirely: the service decides the answer.
	body := `{"service_id":"` + testServiceID + `"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "select both date and time slot")
	assert.True(t, svc.lastCreate.date.IsZero())
}

type stubQuerier struct {
	mu    sync.Mutex
	slots []booking.TimeSlot
}

func (q *stubQuerier) BookedSlots(context.Context, string, time.Time) ([]booking.TimeSlot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.slots, nil
}

func runTestBroker(t *testing.T) *events.Broker {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	nop := zerolog.Nop()
	b := events.NewBroker(&nop)
	go b.Run(ctx)
	return b
}

const streamPath = "/v1/services/" + testServiceID + "/availability/stream?date=2025-06-10"

// closeNotifyRecorder adds the http.CloseNotifier method gin's Stream
// requires, which httptest.ResponseRecorder does not implement.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

func TestStreamSubscribesBeforeInitialSnapshot(t *testing.T) {
	broker := runTestBroker(t)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()

	subscribedFirst := make(chan bool, 1)
	svc := &stubBookingService{}
	svc.availabilityFn = func(_ context.Context, _ string, date time.Time) (*booking.AvailabilityTracker, error) {
		// A booking committed while the snapshot query runs must land in an
		// already-registered subscriber, so registration has to come first.
		ok := false
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if broker.SubscriberCount() > 0 {
				ok = true
				break
			}
			time.Sleep(time.Millisecond)
		}
		subscribedFirst <- ok
		cancelReq()
		return booking.NewAvailabilityTracker(&stubQuerier{}, "p", "s", date), nil
	}

	router := newTestRouterWithBroker(svc, broker)
	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodGet, streamPath, nil).WithContext(reqCtx)
	router.ServeHTTP(w, req)

	assert.True(t, <-subscribedFirst, "stream queried the store before subscribing to the broker")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreamHeartbeatRepairsStaleSnapshot(t *testing.T) {
	oldInterval := heartbeatInterval
	heartbeatInterval = 5 * time.Millisecond
	defer func() { heartbeatInterval = oldInterval }()

	broker := runTestBroker(t)

	// The tracker starts without a refresh, so the initial frame shows every
	// slot free even though the store already has Morning booked. No event is
	// ever published; only the heartbeat re-query can repair the stream.
	querier := &stubQuerier{slots: []booking.TimeSlot{booking.SlotMorning}}
	svc := &stubBookingService{}
	svc.availabilityFn = func(_ context.Context, _ string, date time.Time) (*booking.AvailabilityTracker, error) {
		return booking.NewAvailabilityTracker(querier, "p", "s", date), nil
	}

	reqCtx, cancelReq := context.WithCancel(context.Background())
	router := newTestRouterWithBroker(svc, broker)
	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodGet, streamPath, nil).WithContext(reqCtx)

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancelReq()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after context cancellation")
	}

	body := w.Body.String()
	assert.Contains(t, body, `"booked_slots":[]`)
	assert.Contains(t, body, `"booked_slots":["`+string(booking.SlotMorning)+`"`)
}

func TestCreateBookingEndpointBadDateFormat(t *testing.T) {
	router := newTestRouter(&stubBookingService{})

	body := `{"service_id":"` + testServiceID + `","booking_date":"10/06/2025","preferred_time":"x"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
