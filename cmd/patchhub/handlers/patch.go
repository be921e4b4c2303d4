package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/container"
	"github.com/buildtrack/patchhub/cmd/patchhub/middleware"
	"github.com/buildtrack/patchhub/common/models"
)

// PatchHandler handles the patch request CRUD surface
type PatchHandler struct {
	c *container.Container
}

// NewPatchHandler creates a new patch handler
func NewPatchHandler(c *container.Container) *PatchHandler {
	return &PatchHandler{c: c}
}

type createPatchRequest struct {
	Name            string   `json:"name"`
	CustomerID      int      `json:"customer_id"`
	EnvironmentID   int      `json:"environment_id"`
	SourceBuildID   int      `json:"source_build_id"`
	PreviousPatchID int      `json:"previous_patch_id"`
	ExternalUse     bool     `json:"external_use"`
	Justification   string   `json:"justification"`
	CCList          []string `json:"cc_list"`
}

// CreatePatch creates a new draft patch request
// POST /api/v1/patches
func (h *PatchHandler) CreatePatch(c echo.Context) error {
	var req createPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" || req.CustomerID == 0 || req.SourceBuildID == 0 {
		return badRequest(c, "name, customer_id, and source_build_id are required")
	}

	requestor, err := h.c.AccountRepo.User(c.Request().Context(), middleware.Login(c))
	if err != nil {
		return fail(c, err)
	}

	patch := &models.Patch{
		Name:          req.Name,
		ExternalUse:   req.ExternalUse,
		Customer:      &models.Customer{ID: req.CustomerID},
		SourceBuild:   &models.Build{ID: req.SourceBuildID},
		Requestor:     requestor,
		Justification: req.Justification,
		CCList:        req.CCList,
	}
	if req.EnvironmentID != 0 {
		patch.Environment = &models.Environment{ID: req.EnvironmentID}
	}
	if req.PreviousPatchID != 0 {
		patch.PreviousPatch = &models.Patch{ID: req.PreviousPatchID}
	}

	created, err := h.c.Patches.Create(c.Request().Context(), patch)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, created)
}

// GetPatch retrieves a patch request with its full aggregate
// GET /api/v1/patches/:id
func (h *PatchHandler) GetPatch(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	patch, err := h.c.Patches.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patchResponse(patch))
}

// ListPatches lists patch requests
// GET /api/v1/patches?customer_id=7&status=APPROVAL&limit=50
func (h *PatchHandler) ListPatches(c echo.Context) error {
	var (
		customerID int
		limit      int
	)
	echo.QueryParamsBinder(c).Int("customer_id", &customerID).Int("limit", &limit)

	var status models.RequestStatus
	if raw := c.QueryParam("status"); raw != "" {
		var err error
		if status, err = models.ParseRequestStatus(raw); err != nil {
			return fail(c, err)
		}
	}

	patches, err := h.c.Patches.List(c.Request().Context(), customerID, status, limit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"patches": patches})
}

// PatchMeta applies an RFC 6902 patch to the request's metadata
// PATCH /api/v1/patches/:id
func (h *PatchHandler) PatchMeta(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "unreadable request body")
	}

	patch, err := h.c.Patches.ApplyMetaPatch(c.Request().Context(), id, doc)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, patch)
}

// RelatedPatches lists the other requests in the patch's build lineage
// GET /api/v1/patches/:id/related
func (h *PatchHandler) RelatedPatches(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	related, err := h.c.Patches.Related(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{"patches": related})
}

type assignOwnerRequest struct {
	Login    string     `json:"login"`
	Priority string     `json:"priority"`
	Deadline *time.Time `json:"deadline"`
	Comment  string     `json:"comment"`
}

// AssignOwner assigns a patch to a user
// PUT /api/v1/patches/:id/owner
func (h *PatchHandler) AssignOwner(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req assignOwnerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Login == "" {
		return badRequest(c, "login is required")
	}

	priority, err := models.ParsePatchPriority(req.Priority)
	if err != nil {
		return badRequest(c, err.Error())
	}

	owner, err := h.c.Patches.AssignOwner(c.Request().Context(), id,
		req.Login, priority, req.Deadline, req.Comment)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusOK, owner)
}

type addCommentRequest struct {
	Text       string `json:"text"`
	Visibility string `json:"visibility"`
}

// AddComment appends a comment to the patch
// POST /api/v1/patches/:id/comments
func (h *PatchHandler) AddComment(c echo.Context) error {
	id, err := patchID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req addCommentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	visibility := models.CommentVisibility(req.Visibility)
	if visibility == "" {
		visibility = models.CommentShow
	}

	comment, err := h.c.Patches.AddComment(c.Request().Context(), id,
		middleware.Login(c), req.Text, visibility)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(http.StatusCreated, comment)
}

// patchResponse flattens the aggregate for JSON: the fix list lives
// behind accessors on the model
func patchResponse(patch *models.Patch) map[string]any {
	return map[string]any{
		"patch": patch,
		"fixes": patch.Fixes(),
	}
}
