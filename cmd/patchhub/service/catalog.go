package service

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
)

// CatalogService exposes the product catalog backing build selection
type CatalogService struct {
	store CatalogStore
	log   *logger.Logger
}

// NewCatalogService creates a catalog service
func NewCatalogService(store CatalogStore, log *logger.Logger) *CatalogService {
	return &CatalogService{store: store, log: log}
}

// Products lists the catalog with full version hierarchies
func (s *CatalogService) Products(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

// Save upserts a product and its versions
func (s *CatalogService) Save(ctx context.Context, product *models.Product) error {
	if product.Name == "" {
		return fmt.Errorf("product needs a name")
	}
	if err := s.store.SaveProduct(ctx, product); err != nil {
		return err
	}
	s.log.Info("product saved", "product_id", product.ID, "name", product.Name)
	return nil
}
