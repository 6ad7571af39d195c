package media

import (
	"context"

	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	ListByProduct(ctx context.Context, productID string) ([]*models.Media, error)
	MarkUploaded(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
