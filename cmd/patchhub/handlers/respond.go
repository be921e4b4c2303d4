package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/buildtrack/patchhub/cmd/patchhub/service"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/repository"
)

// fail maps service errors to HTTP responses. Workflow-rule violations
// are conflicts, parse failures are bad requests, everything unknown is
// a 500 with the detail kept out of the response body.
func fail(c echo.Context, err error) error {
	var (
		invalid    *models.ErrInvalidTransition
		badStatus  *models.StatusParseError
		statusCode int
		message    string
	)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		statusCode, message = http.StatusNotFound, err.Error()
	case errors.As(err, &invalid):
		statusCode, message = http.StatusConflict, invalid.Error()
	case errors.Is(err, service.ErrFixesLocked):
		statusCode, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrNotAuthorized):
		statusCode, message = http.StatusForbidden, err.Error()
	case errors.As(err, &badStatus):
		statusCode, message = http.StatusBadRequest, badStatus.Error()
	default:
		statusCode, message = http.StatusInternalServerError, "internal error"
	}

	if statusCode == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.JSON(statusCode, map[string]string{"error": message})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func patchID(c echo.Context) (int, error) {
	var id int
	if err := echo.PathParamsBinder(c).Int("id", &id).BindError(); err != nil || id <= 0 {
		return 0, errors.New("invalid patch id")
	}
	return id, nil
}
