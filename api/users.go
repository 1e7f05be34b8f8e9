package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/astrialabs/astrochat/internal/service"
)

// GetMe returns the authenticated account.
// GET /v1/users/me
func (h *Handler) GetMe(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

// UpdateMe updates the caller's profile.
// PATCH /v1/users/me
func (h *Handler) UpdateMe(c echo.Context) error {
	user := currentUser(c)

	var upd service.UserUpdate
	if err := c.Bind(&upd); err != nil {
		return badRequest(c, "invalid request body")
	}

	updated, err := h.svc.UpdateUser(c.Request().Context(), user.ID, upd)
	if err != nil {
		return fail(c, err, "account")
	}
	return c.JSON(http.StatusOK, updated)
}

// Logout clears the caller's cached sessions after flushing them.
// POST /v1/users/me/logout
func (h *Handler) Logout(c echo.Context) error {
	user := currentUser(c)

	if err := h.svc.Logout(c.Request().Context(), user.ID); err != nil {
		return fail(c, err, "account")
	}
	return c.NoContent(http.StatusNoContent)
}
