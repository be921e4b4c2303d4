package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/cmd/patchhub/middleware"
	"github.com/buildtrack/patchhub/common/models"
)

// WorkflowHandler handles status transitions and the approval chain
type WorkflowHandler struct {
	c *container.Container
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(c *container.Container) *WorkflowHandler {
	return &WorkflowHandler{c: c}
}

// Submit moves a SAVED request into the approval chain
// POST /api/v1/patches/:id/submit
func (h *WorkflowHandler) Submit(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := h.c.Approvals.SubmitForApproval(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

type approvalRequest struct {
	Verdict string `json:"verdict"`
	Comment string `json:"comment"`
}

// Approve records the caller's verdict on a request in APPROVAL
// POST /api/v1/patches/:id/approvals
func (h *WorkflowHandler) Approve(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	verdict, err := models.ParseApprovalStatus(req.Verdict)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := h.c.Approvals.SubmitApproval(c.Request().Context(), id,
		middleware.Login(c), verdict, req.Comment)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetStatus applies a guarded status transition. CI reports branch and
// build progress through this endpoint.
// PUT /api/v1/patches/:id/status
func (h *WorkflowHandler) SetStatus(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	status, err := models.ParseRequestStatus(req.Status)
	if err != nil {
		return fail(c, err)
	}

	patch, err := h.c.Approvals.SetStatus(c.Request().Context(), id, status)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

// Built is the CI completion callback
// POST /api/v1/patches/:id/built
func (h *WorkflowHandler) Built(c echo.Context) error {
	return h.apply(c, h.c.Approvals.MarkBuilt)
}

// Complete marks the built patch ready for review
// POST /api/v1/patches/:id/complete
func (h *WorkflowHandler) Complete(c echo.Context) error {
	return h.apply(c, h.c.Approvals.Complete)
}

// Release hands the patch to the customer
// POST /api/v1/patches/:id/release
func (h *WorkflowHandler) Release(c echo.Context) error {
	return h.apply(c, h.c.Approvals.Release)
}

func (h *WorkflowHandler) apply(c echo.Context, op func(context.Context, int) (*models.Patch, error)) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := op(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

// Resubmit returns a REJECTED request to SAVED for another attempt
// POST /api/v1/patches/:id/resubmit
func (h *WorkflowHandler) Resubmit(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := h.c.Approvals.Resubmit(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

// Cancel terminates a request
// POST /api/v1/patches/:id/cancel
func (h *WorkflowHandler) Cancel(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := h.c.Approvals.Cancel(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}
