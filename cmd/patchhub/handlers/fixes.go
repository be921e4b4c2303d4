package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/common/models"
)

// FixHandler handles fix availability, bulk entry, and origin
// reconciliation
type FixHandler struct {
	c *container.Container
}

// NewFixHandler creates a new fix handler
func NewFixHandler(c *container.Container) *FixHandler {
	return &FixHandler{c: c}
}

// AvailableFixes lists the resolved fixes in the patch's release line
// that are not yet on the patch
// GET /api/v1/patches/:id/fixes/available
func (h *FixHandler) AvailableFixes(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()

	patch, err := h.c.Patches.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}

	fixes, err := h.c.Fixes.AvailableFixes(ctx, patch)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"fixes": fixes})
}

type bulkFixRequest struct {
	Bugs   string `json:"bugs"`
	Branch string `json:"branch"`
}

// ResolveBulk validates a bulk list of bug IDs without committing them
// POST /api/v1/patches/:id/fixes/bulk
func (h *FixHandler) ResolveBulk(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()

	var req bulkFixRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	patch, err := h.c.Patches.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}

	fixes, fieldErrs, err := h.c.Fixes.ResolveBulkFixes(ctx, patch, req.Bugs, req.Branch)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"fixes":  fixes,
		"errors": fieldErrs,
	})
}

type replaceFixesRequest struct {
	Fixes  []fixInput `json:"fixes"`
	Bugs   string     `json:"bugs"`
	Branch string     `json:"branch"`
}

type fixInput struct {
	BugID      int    `json:"bug_id"`
	Exclusions string `json:"exclusions"`
	Notes      string `json:"notes"`
}

// ReplaceFixes swaps the patch's fix list: the selected fixes plus any
// validated bulk additions. Any change restarts the approval process.
// PUT /api/v1/patches/:id/fixes
func (h *FixHandler) ReplaceFixes(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx := c.Request().Context()

	var req replaceFixesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	patch, err := h.c.Patches.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}

	fixes := make([]models.Fix, 0, len(req.Fixes))
	for _, in := range req.Fixes {
		// Selections keep their tracker data when already on the patch
		fix := models.Fix{BugID: in.BugID, Notes: in.Notes}
		if existing := patch.Fix(in.BugID); existing != nil {
			fix = *existing
			fix.Notes = in.Notes
		}
		fix.SetExclusions(in.Exclusions)
		fixes = append(fixes, fix)
	}

	if req.Bugs != "" {
		bulk, fieldErrs, err := h.c.Fixes.ResolveBulkFixes(ctx, patch, req.Bugs, req.Branch)
		if err != nil {
			return fail(c, err)
		}
		if fieldErrs.Any() {
			return c.JSON(http.StatusBadRequest, map[string]any{"errors": fieldErrs})
		}
		fixes = append(fixes, bulk...)
	}

	updated, err := h.c.Fixes.ReplaceFixes(ctx, id, fixes)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patchResponse(updated))
}

// OriginCandidates computes origin candidates without persisting
// anything
// GET /api/v1/patches/:id/origins
func (h *FixHandler) OriginCandidates(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	candidates, err := h.c.Origins.Candidates(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"candidates": candidates})
}

// Origins computes origin candidates for the patch's fixes and persists
// the unambiguous ones
// POST /api/v1/patches/:id/origins
func (h *FixHandler) Origins(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	candidates, err := h.c.Origins.Reconcile(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"candidates": candidates})
}

type setOriginRequest struct {
	OriginPatchID int `json:"origin_patch_id"`
}

// SetOrigin records a manually chosen origin for one fix
// PUT /api/v1/patches/:id/fixes/:bugID/origin
func (h *FixHandler) SetOrigin(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var bugID int
	if err := echo.PathParamsBinder(c).Int("bugID", &bugID).BindError(); err != nil || bugID <= 0 {
		return badRequest(c, "invalid bug id")
	}

	var req setOriginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.OriginPatchID == 0 {
		return badRequest(c, "origin_patch_id is required")
	}

	if err := h.c.Origins.ApplyOrigin(c.Request().Context(), id, bugID, req.OriginPatchID); err != nil {
		return fail(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
