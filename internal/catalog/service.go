package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/localserve/marketplace-backend/internal/pkg/storage"
)

// Catalog defines the read surface of the marketplace: categories, providers
// and the services they offer. The booking flow treats all of it as read-only.
type Catalog interface {
	ListCategories(ctx context.Context) ([]*Category, error)
	GetProvider(ctx context.Context, id string) (*Provider, error)
	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, filter ServiceFilter) ([]*Service, int, error)

	// UpdateProviderImage stores a new profile picture for the provider.
	// Only the provider's linked user account may replace it.
	UpdateProviderImage(ctx context.Context, providerID, actorUserID string, content io.Reader) (string, error)
}

type catalogService struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
}

// NewService creates the Catalog implementation.
func NewService(repo Repository, store storage.Storage) Catalog {
	return &catalogService{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *catalogService) GetProvider(ctx context.Context, id string) (*Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

func (s *catalogService) GetService(ctx context.Context, id string) (*Service, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, ErrServiceNotFound
	}
	return svc, nil
}

func (s *catalogService) ListServices(ctx context.Context, filter ServiceFilter) ([]*Service, int, error) {
	return s.repo.ListServices(ctx, filter)
}

func (s *catalogService) UpdateProviderImage(ctx context.Context, providerID, actorUserID string, content io.Reader) (string, error) {
	p, err := s.repo.GetProvider(ctx, providerID)
	if err != nil {
		return "", err
	}
	if p.UserID != actorUserID {
		return "", ErrNotProviderOwner
	}

	// Normalize to a bounded JPEG before storing.
	normalized, err := s.imgProc.FitJPEG(content, 1000, 1000)
	if err != nil {
		return "", ErrInvalidImage
	}

	imageID := uuid.New().String()
	path := fmt.Sprintf("providers/%s/%s.jpg", imageID[:2], imageID)

	if err := s.storage.Save(ctx, path, normalized); err != nil {
		return "", fmt.Errorf("failed to save provider image: %w", err)
	}

	if err := s.repo.UpdateProviderImage(ctx, providerID, path); err != nil {
		// Roll back the orphaned file; the old picture stays referenced.
		_ = s.storage.Delete(ctx, path)
		return "", err
	}

	// Drop the previous picture once the row points at the new one.
	if p.ProfilePicture != nil && *p.ProfilePicture != path {
		_ = s.storage.Delete(ctx, *p.ProfilePicture)
	}

	return path, nil
}
