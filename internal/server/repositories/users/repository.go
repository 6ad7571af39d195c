package users

import (
	"context"

	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
