package repository

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// CatalogRepository handles database operations for the product catalog
type CatalogRepository struct {
	db *db.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.DB) *CatalogRepository {
	return &CatalogRepository{db: database}
}

// ListProducts retrieves all products with their version hierarchy
func (r *CatalogRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT p.product_id, p.name, p.description,
		       v.version_id, v.name, v.description
		FROM product p
		LEFT JOIN product_version v ON v.product_id = p.product_id
		ORDER BY p.product_id, v.version_id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]*models.Product)
	var order []int
	for rows.Next() {
		var (
			p                models.Product
			verID            *int
			verName, verDesc *string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &verID, &verName, &verDesc); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		product, ok := byID[p.ID]
		if !ok {
			product = &p
			byID[p.ID] = product
			order = append(order, p.ID)
		}

		if verID != nil {
			version := models.ProductVersion{ID: *verID}
			if verName != nil {
				version.Name = *verName
			}
			if verDesc != nil {
				version.Description = *verDesc
			}
			product.AddVersion(version)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	products := make([]models.Product, 0, len(order))
	for _, id := range order {
		products = append(products, *byID[id])
	}
	return products, nil
}

// SaveProduct upserts a product row
func (r *CatalogRepository) SaveProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO product (product_id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET name = $2, description = $3
	`

	if _, err := r.db.Exec(ctx, query, product.ID, product.Name, product.Description); err != nil {
		return fmt.Errorf("failed to save product %d: %w", product.ID, err)
	}

	for _, version := range product.Versions() {
		if err := r.saveVersion(ctx, product.ID, version); err != nil {
			return err
		}
	}

	return nil
}

func (r *CatalogRepository) saveVersion(ctx context.Context, productID int, version models.ProductVersion) error {
	query := `
		INSERT INTO product_version (version_id, product_id, name, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (version_id) DO UPDATE SET name = $3, description = $4
	`

	if _, err := r.db.Exec(ctx, query, version.ID, productID, version.Name, version.Description); err != nil {
		return fmt.Errorf("failed to save product version %d: %w", version.ID, err)
	}

	return nil
}
