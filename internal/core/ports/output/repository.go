package ports

import (
	"context"

	"github.com/google/uuid"

	"bento-registry/internal/core/domain"
)

type BundleListFilter struct {
	ProjectID uuid.UUID
	Name      string
	SortBy    string
	Order     string
	Limit     int
	Offset    int
}

type BundleRepository interface {
	Create(ctx context.Context, bundle *domain.Bundle) error
	GetByID(ctx context.Context, projectID uuid.UUID, id uuid.UUID) (*domain.Bundle, error)
	GetByNameVersion(ctx context.Context, projectID uuid.UUID, name, version string) (*domain.Bundle, error)
	List(ctx context.Context, filter BundleListFilter) ([]*domain.Bundle, int, error)
	Delete(ctx context.Context, projectID uuid.UUID, id uuid.UUID) error
}
