package repomanager

import (
	"context"
	"database/sql"

	"github.com/alexbor287kz-boop/marketplace/internal/dbx"
	"github.com/alexbor287kz-boop/marketplace/internal/server/repositories/media"
	"github.com/alexbor287kz-boop/marketplace/internal/server/repositories/products"
	"github.com/alexbor287kz-boop/marketplace/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Products(db dbx.DBTX) products.Repository
	Media(db dbx.DBTX) media.Repository
}
