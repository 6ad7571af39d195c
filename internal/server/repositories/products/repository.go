package products

import (
	"context"

	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, id string, upd *models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id string) error
}
