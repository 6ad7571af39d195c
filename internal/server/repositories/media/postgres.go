// Package media provides a PostgreSQL-backed repository for product media
// metadata. The payload bytes live in object storage.
package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/dbx"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
)

// PostgresRepository implements the media Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a media row in the pending state and returns it with the
// generated id.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	query :=
		`INSERT INTO product_media (product_id, storage_key, content_type, upload_status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		m.ProductID, m.StorageKey, m.ContentType, m.UploadStatus).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

// GetByID returns a media row, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query :=
		`SELECT id, product_id, storage_key, content_type, upload_status, created_at
		 FROM product_media
		 WHERE id = $1
		 `

	m := &models.Media{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.ProductID, &m.StorageKey,
		&m.ContentType, &m.UploadStatus, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return m, nil
}

// ListByProduct returns all media rows attached to a product.
func (r *PostgresRepository) ListByProduct(ctx context.Context, productID string) ([]*models.Media, error) {
	query :=
		`SELECT id, product_id, storage_key, content_type, upload_status, created_at
		 FROM product_media
		 WHERE product_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Media
	for rows.Next() {
		m := &models.Media{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.StorageKey, &m.ContentType,
			&m.UploadStatus, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// MarkUploaded transitions a media row out of the pending state.
// An unknown id yields common.ErrorNotFound.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query :=
		`UPDATE product_media SET upload_status = $1
		 WHERE id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, models.MediaUploadUploaded, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// Delete removes a media row. An unknown id yields common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM product_media WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
