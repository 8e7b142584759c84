package http

import (
	"time"

	"github.com/localserve/marketplace-backend/internal/catalog"
	"github.com/localserve/marketplace-backend/internal/pkg/request"
)

type CategoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

func NewCategoryResponse(cat *catalog.Category) CategoryResponse {
	return CategoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Icon:        cat.Icon,
		Color:       cat.Color,
		Description: cat.Description,
	}
}

type ProviderResponse struct {
	ID             string    `json:"id"`
	BusinessName   string    `json:"business_name"`
	Location       string    `json:"location"`
	Rating         *float64  `json:"rating"`
	TotalBookings  int64     `json:"total_bookings"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewProviderResponse(p *catalog.Provider) ProviderResponse {
	return ProviderResponse{
		ID:             p.ID,
		BusinessName:   p.BusinessName,
		Location:       p.Location,
		Rating:         p.Rating,
		TotalBookings:  p.TotalBookings,
		ProfilePicture: p.ProfilePicture,
		CreatedAt:      p.CreatedAt,
	}
}

type ServiceResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Price       float64          `json:"price"`
	Description string           `json:"description"`
	Duration    *string          `json:"duration"`
	CategoryID  *int64           `json:"category_id"`
	Provider    ProviderResponse `json:"provider"`
	CreatedAt   time.Time        `json:"created_at"`
}

func NewServiceResponse(s *catalog.Service) ServiceResponse {
	resp := ServiceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Price:       s.Price,
		Description: s.Description,
		Duration:    s.Duration,
		CategoryID:  s.CategoryID,
		CreatedAt:   s.CreatedAt,
	}
	if s.Provider != nil {
		resp.Provider = NewProviderResponse(s.Provider)
	}
	return resp
}

// ListServicesRequest defines query parameters for listing services.
type ListServicesRequest struct {
	request.ListParams
	CategoryID *int64 `form:"category_id" binding:"omitempty,min=1"`
	ProviderID string `form:"provider_id" binding:"omitempty,uuid"`
}

// UpdateImageResponse is returned after a successful profile picture upload.
type UpdateImageResponse struct {
	ProfilePicture string `json:"profile_picture"`
}
