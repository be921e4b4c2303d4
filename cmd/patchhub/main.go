package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/cmd/patchhub/routes"
	"github.com/buildtrack/patchhub/common/bootstrap"
)

func main() {
	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "patchhub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap patchhub: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, serviceContainer)
	registerRoutes(e, serviceContainer)

	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, c *container.Container) {
	e.GET("/health", func(ec echo.Context) error {
		ctx := ec.Request().Context()

		health := map[string]string{
			"status":  "ok",
			"service": "patchhub",
		}
		if err := c.Components.DB.Health(ctx); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
		}
		if c.Redis != nil {
			if err := c.Redis.Health(ctx); err != nil {
				health["status"] = "degraded"
				health["redis"] = err.Error()
			}
		}

		return ec.JSON(200, health)
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, c *container.Container) {
	routes.RegisterPatchRoutes(e, c)
	routes.RegisterCatalogRoutes(e, c)
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, components *bootstrap.Components) {
	port := components.Config.Service.Port
	components.Logger.Info("starting patchhub", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		components.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
