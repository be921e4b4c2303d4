package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/cmd/patchhub/handlers"
)

// RegisterCatalogRoutes registers the product catalog surface
func RegisterCatalogRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewCatalogHandler(c)

	g := e.Group("/api/v1/products")
	g.GET("", h.ListProducts)      // GET  /api/v1/products
	g.POST("", h.CreateProduct)    // POST /api/v1/products
	g.PUT("/:id", h.SaveProduct)   // PUT  /api/v1/products/11
}
