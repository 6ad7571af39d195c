// Package products provides a PostgreSQL-backed repository for the catalog.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/dbx"
	"github.com/alexbor287kz-boop/marketplace/internal/server/models"
)

// unknownOwnerName is shown when the owning user row is missing.
const unknownOwnerName = "Неизвестен"

// PostgresRepository implements the products Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// joinTags flattens the tag list into the single text column it is stored in.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// splitTags is the inverse of joinTags; an empty column yields no tags.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// List returns all products, newest first, with the owner's display name
// attached. Products whose owner row is gone get a placeholder name.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Product, error) {
	query :=
		`SELECT p.id, p.owner_id, p.title, p.short_description, p.icon_url,
		        p.category, p.product_type, p.tags, p.product_url,
		        p.created_at, p.updated_at, COALESCE(u.full_name, '')
		 FROM products p
		 LEFT JOIN users u ON u.id = p.owner_id
		 ORDER BY p.created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		p := &models.Product{}
		var tags string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.ShortDescription, &p.IconURL,
			&p.Category, &p.ProductType, &tags, &p.ProductURL,
			&p.CreatedAt, &p.UpdatedAt, &p.OwnerName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.Tags = splitTags(tags)
		if p.OwnerName == "" {
			p.OwnerName = unknownOwnerName
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// GetByID returns a single product, or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query :=
		`SELECT id, owner_id, title, short_description, icon_url,
		        category, product_type, tags, product_url, created_at, updated_at
		 FROM products
		 WHERE id = $1
		 `

	p := &models.Product{}
	var tags string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.OwnerID, &p.Title,
		&p.ShortDescription, &p.IconURL, &p.Category, &p.ProductType, &tags,
		&p.ProductURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Tags = splitTags(tags)

	return p, nil
}

// Create inserts a new product and returns it with generated id and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	query :=
		`INSERT INTO products (owner_id, title, short_description, icon_url,
		                       category, product_type, tags, product_url)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		product.OwnerID, product.Title, product.ShortDescription, product.IconURL,
		product.Category, product.ProductType, joinTags(product.Tags), product.ProductURL).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return product, nil
}

// Update applies the non-nil fields of upd to the product, bumps updated_at,
// and returns the resulting row. An unknown id yields common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd *models.ProductUpdate) (*models.Product, error) {
	set := []string{"updated_at = now()"}
	args := []any{}
	n := 1

	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.ShortDescription != nil {
		add("short_description", *upd.ShortDescription)
	}
	if upd.IconURL != nil {
		add("icon_url", *upd.IconURL)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.ProductType != nil {
		add("product_type", *upd.ProductType)
	}
	if upd.Tags != nil {
		add("tags", joinTags(upd.Tags))
	}
	if upd.ProductURL != nil {
		add("product_url", *upd.ProductURL)
	}

	query := fmt.Sprintf(
		`UPDATE products SET %s
		 WHERE id = $%d
		 RETURNING id, owner_id, title, short_description, icon_url,
		           category, product_type, tags, product_url, created_at, updated_at
		 `, strings.Join(set, ", "), n)
	args = append(args, id)

	p := &models.Product{}
	var tags string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.OwnerID, &p.Title,
		&p.ShortDescription, &p.IconURL, &p.Category, &p.ProductType, &tags,
		&p.ProductURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	p.Tags = splitTags(tags)

	return p, nil
}

// Delete removes a product. Attached media rows go with it via the cascade
// on product_media.product_id. Deleting an unknown id is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
