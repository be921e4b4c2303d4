package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/cmd/patchhub/handlers"
	"github.com/buildtrack/patchhub/cmd/patchhub/middleware"
)

// RegisterPatchRoutes registers the patch request surface
func RegisterPatchRoutes(e *echo.Echo, c *container.Container) {
	patches := handlers.NewPatchHandler(c)
	workflow := handlers.NewWorkflowHandler(c)
	fixes := handlers.NewFixHandler(c)

	g := e.Group("/api/v1/patches")
	g.Use(middleware.ExtractLogin())

	g.GET("", patches.ListPatches)                   // GET    /api/v1/patches?customer_id=7&status=APPROVAL
	g.GET("/:id", patches.GetPatch)                  // GET    /api/v1/patches/42
	g.PATCH("/:id", patches.PatchMeta)               // PATCH  /api/v1/patches/42
	g.GET("/:id/related", patches.RelatedPatches)    // GET    /api/v1/patches/42/related
	g.PUT("/:id/status", workflow.SetStatus)         // PUT    /api/v1/patches/42/status (CI callbacks)
	g.POST("/:id/built", workflow.Built)             // POST   /api/v1/patches/42/built
	g.POST("/:id/complete", workflow.Complete)       // POST   /api/v1/patches/42/complete
	g.POST("/:id/release", workflow.Release)         // POST   /api/v1/patches/42/release
	g.POST("/:id/resubmit", workflow.Resubmit)       // POST   /api/v1/patches/42/resubmit
	g.POST("/:id/cancel", workflow.Cancel)           // POST   /api/v1/patches/42/cancel
	g.GET("/:id/fixes/available", fixes.AvailableFixes) // GET /api/v1/patches/42/fixes/available
	g.POST("/:id/fixes/bulk", fixes.ResolveBulk)     // POST   /api/v1/patches/42/fixes/bulk
	g.PUT("/:id/fixes", fixes.ReplaceFixes)          // PUT    /api/v1/patches/42/fixes
	g.GET("/:id/origins", fixes.OriginCandidates)    // GET    /api/v1/patches/42/origins
	g.POST("/:id/origins", fixes.Origins)            // POST   /api/v1/patches/42/origins
	g.PUT("/:id/fixes/:bugID/origin", fixes.SetOrigin) // PUT /api/v1/patches/42/fixes/101/origin

	// Operations that record who acted require a login
	authed := g.Group("", middleware.RequireLogin())
	authed.POST("", patches.CreatePatch)             // POST   /api/v1/patches
	authed.POST("/:id/submit", workflow.Submit)      // POST   /api/v1/patches/42/submit
	authed.POST("/:id/approvals", workflow.Approve)  // POST   /api/v1/patches/42/approvals
	authed.PUT("/:id/owner", patches.AssignOwner)    // PUT    /api/v1/patches/42/owner
	authed.POST("/:id/comments", patches.AddComment) // POST   /api/v1/patches/42/comments
}
