package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/localserve/marketplace-backend/internal/auth"
	"github.com/localserve/marketplace-backend/internal/booking"
	"github.com/localserve/marketplace-backend/internal/events"
	"github.com/localserve/marketplace-backend/internal/pkg/response"
)

// heartbeatInterval keeps idle SSE connections from being reaped by proxies
// and bounds how long a stream can stay stale after a missed event.
var heartbeatInterval = 30 * time.Second

type Handler struct {
	bookings booking.Service
	broker   *events.Broker
	logger   zerolog.Logger
}

func NewHandler(bookings booking.Service, broker *events.Broker, logger zerolog.Logger) *Handler {
	return &Handler{
		bookings: bookings,
		broker:   broker,
		logger:   logger,
	}
}

// BookedSlots returns the occupied and free slots for a service on one date.
func (h *Handler) BookedSlots(c *gin.Context) {
	serviceID := c.Param("id")
	if _, err := uuid.Parse(serviceID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	date, ok := parseDateParam(c, c.Query("date"))
	if !ok {
		return
	}

	booked, err := h.bookings.BookedSlots(c.Request.Context(), serviceID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, newBookedSlotsResponse(date, booked))
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var date time.Time
	if req.BookingDate != "" {
		var err error
		date, err = time.Parse(booking.DateFormat, req.BookingDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "booking_date must use the YYYY-MM-DD format"})
			return
		}
	}

	b, err := h.bookings.Create(
		c.Request.Context(),
		auth.GetUserID(c),
		req.ServiceID,
		date,
		booking.TimeSlot(req.PreferredTime),
	)
	if err != nil {
		var conflict *booking.SlotConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, ConflictResponse{
				Error:  conflict.Error(),
				Status: conflict.OccupiedAs(),
			})
			return
		}
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	filter := booking.Filter{
		Status:    req.Status,
		ServiceID: req.ServiceID,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}

	if req.DateFrom != "" {
		from, err := time.Parse(booking.DateFormat, req.DateFrom)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_from must use the YYYY-MM-DD format"})
			return
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse(booking.DateFormat, req.DateTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date_to must use the YYYY-MM-DD format"})
			return
		}
		filter.DateTo = &to
	}

	bookings, total, err := h.bookings.List(c.Request.Context(), filter, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, filter.Page, filter.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	b, err := h.bookings.GetByID(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var req UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.bookings.UpdateStatus(c.Request.Context(), id, actorFrom(c), booking.Status(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// StreamAvailability pushes the slot picture of one (service, date) pair over
// SSE. Every matching change-feed event triggers a store re-query; a failed
// re-query keeps the last delivered snapshot on the wire.
func (h *Handler) StreamAvailability(c *gin.Context) {
	serviceID := c.Param("id")
	if _, err := uuid.Parse(serviceID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	date, ok := parseDateParam(c, c.Query("date"))
	if !ok {
		return
	}

	// Subscribe before taking the initial snapshot: a booking committed in
	// between then sits in the event buffer instead of being lost.
	sub := events.NewChanSubscriber(16)
	h.broker.Subscribe(sub)
	defer func() {
		h.broker.Unsubscribe(sub)
		sub.Close()
	}()

	tracker, err := h.bookings.Availability(c.Request.Context(), serviceID, date)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Initial snapshot before the first event arrives.
	c.SSEvent("availability", newBookedSlotsResponse(date, tracker.Booked()))
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false

		case <-heartbeat.C:
			// Heartbeats double as repair: an event dropped by a full
			// buffer is made up for by the next periodic re-query.
			if err := tracker.Refresh(ctx); err != nil {
				h.logger.Warn().Err(err).
					Str("service_id", serviceID).
					Msg("availability refresh failed, keeping last snapshot")
				c.SSEvent("ping", nil)
				return true
			}
			c.SSEvent("availability", newBookedSlotsResponse(date, tracker.Booked()))
			return true

		case ev, open := <-sub.Events():
			if !open {
				return false
			}
			if !tracker.Matches(ev) {
				return true
			}
			if err := tracker.Refresh(ctx); err != nil {
				h.logger.Warn().Err(err).
					Str("service_id", serviceID).
					Msg("availability refresh failed, keeping last snapshot")
				return true
			}
			c.SSEvent("availability", newBookedSlotsResponse(date, tracker.Booked()))
			return true
		}
	})
}

func newBookedSlotsResponse(date time.Time, booked []booking.TimeSlot) BookedSlotsResponse {
	occupied := make(map[booking.TimeSlot]bool, len(booked))
	for _, s := range booked {
		occupied[s] = true
	}

	var free []booking.TimeSlot
	for _, s := range booking.AllSlots() {
		if !occupied[s] {
			free = append(free, s)
		}
	}

	return BookedSlotsResponse{
		Date:           date.Format(booking.DateFormat),
		BookedSlots:    slotStrings(booked),
		AvailableSlots: slotStrings(free),
	}
}

func parseDateParam(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return time.Time{}, false
	}
	date, err := time.Parse(booking.DateFormat, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must use the YYYY-MM-DD format"})
		return time.Time{}, false
	}
	return date, true
}

func actorFrom(c *gin.Context) booking.Actor {
	return booking.Actor{
		UserID:  auth.GetUserID(c),
		IsAdmin: auth.IsAdmin(c),
	}
}
