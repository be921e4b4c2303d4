package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/common/models"
)

// CatalogHandler handles the product catalog
type CatalogHandler struct {
	c *container.Container
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(c *container.Container) *CatalogHandler {
	return &CatalogHandler{c: c}
}

type productVersionPayload struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type productPayload struct {
	ID          int                     `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Versions    []productVersionPayload `json:"versions"`
}

// ListProducts lists all products with their version hierarchies
// GET /api/v1/products
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	products, err := h.c.Catalog.Products(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}

	payload := make([]productPayload, 0, len(products))
	for i := range products {
		payload = append(payload, toProductPayload(&products[i]))
	}

	return c.JSON(http.StatusOK, map[string]any{"products": payload})
}

// CreateProduct registers a new product definition
// POST /api/v1/products
func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req productPayload
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ID <= 0 {
		return badRequest(c, "id is required")
	}

	product := fromProductPayload(req)
	if err := h.c.Catalog.Save(c.Request().Context(), &product); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, toProductPayload(&product))
}

// SaveProduct upserts a product definition
// PUT /api/v1/products/:id
func (h *CatalogHandler) SaveProduct(c echo.Context) error {
	var id int
	if err := echo.PathParamsBinder(c).Int("id", &id).BindError(); err != nil || id <= 0 {
		return badRequest(c, "invalid product id")
	}

	var req productPayload
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	req.ID = id
	product := fromProductPayload(req)

	if err := h.c.Catalog.Save(c.Request().Context(), &product); err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, toProductPayload(&product))
}

func fromProductPayload(payload productPayload) models.Product {
	product := models.Product{
		ID:          payload.ID,
		Name:        payload.Name,
		Description: payload.Description,
	}
	for _, v := range payload.Versions {
		product.AddVersion(models.ProductVersion{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
		})
	}
	return product
}

func toProductPayload(product *models.Product) productPayload {
	payload := productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Versions:    []productVersionPayload{},
	}
	for _, v := range product.Versions() {
		payload.Versions = append(payload.Versions, productVersionPayload{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
		})
	}
	return payload
}
