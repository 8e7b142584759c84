package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/localserve/marketplace-backend/internal/auth"
	"github.com/localserve/marketplace-backend/internal/catalog"
	"github.com/localserve/marketplace-backend/internal/pkg/response"
)

const maxImageSizeBytes = 5 << 20 // 5 MiB

type Handler struct {
	catalog catalog.Catalog
}

func NewHandler(cat catalog.Catalog) *Handler {
	return &Handler{catalog: cat}
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		items = append(items, NewCategoryResponse(cat))
	}

	c.JSON(http.StatusOK, gin.H{"categories": items})
}

func (h *Handler) ListServices(c *gin.Context) {
	var req ListServicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	filter := catalog.ServiceFilter{
		CategoryID: req.CategoryID,
		ProviderID: req.ProviderID,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	services, total, err := h.catalog.ListServices(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ServiceResponse, len(services))
	for i, s := range services {
		items[i] = NewServiceResponse(s)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, filter.Page, filter.PageSize, total))
}

func (h *Handler) GetService(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	s, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewServiceResponse(s))
}

func (h *Handler) GetProvider(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	p, err := h.catalog.GetProvider(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewProviderResponse(p))
}

// UpdateProviderImage replaces the provider's profile picture.
// The image is re-encoded and size-bounded before being stored.
func (h *Handler) UpdateProviderImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}
	if fileHeader.Size > maxImageSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds the 5 MiB limit"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}
	defer src.Close()

	path, err := h.catalog.UpdateProviderImage(c.Request.Context(), id, auth.GetUserID(c), src)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, UpdateImageResponse{ProfilePicture: path})
}
