package catalog

import (
	"net/http"
	"time"

	"github.com/localserve/marketplace-backend/internal/pkg/apperror"
)

var (
	ErrServiceNotFound  = apperror.New(http.StatusNotFound, "service not found")
	ErrProviderNotFound = apperror.New(http.StatusNotFound, "provider not found")
	ErrNotProviderOwner = apperror.New(http.StatusForbidden, "permission denied")
	ErrInvalidImage     = apperror.New(http.StatusBadRequest, "uploaded file is not a valid image")
)

// Category is a landing-page service category (Plumbing, Electrical, ...).
// The set is seeded by the schema and read-only at runtime.
type Category struct {
	ID          int64
	Name        string
	Icon        string
	Color       string
	Description string
}

// Provider represents a business offering services on the marketplace.
// Rating is nil until the provider has received a first review; TotalBookings
// is an aggregate maintained by the provider-side workflow.
type Provider struct {
	ID             string // UUID
	UserID         string // account the provider signs in with
	BusinessName   string
	Location       string
	Rating         *float64
	TotalBookings  int64
	ProfilePicture *string
	CreatedAt      time.Time
}

// Service is a bookable service offered by a provider. Immutable from the
// booking flow's perspective; Price is copied onto bookings at creation time.
type Service struct {
	ID          string // UUID
	ProviderID  string
	CategoryID  *int64
	Name        string
	Price       float64
	Description string
	Duration    *string
	IsActive    bool
	CreatedAt   time.Time

	// Provider is populated on joined reads (service detail).
	Provider *Provider
}

// ServiceFilter defines parameters for listing services.
type ServiceFilter struct {
	CategoryID *int64
	ProviderID string
	Page       int
	PageSize   int
}
