package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/astrialabs/astrochat/domain"
)

// AdminListUsers returns a page of accounts.
// GET /v1/admin/users
func (h *Handler) AdminListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	admin, err := h.svc.RequireAdmin(ctx, currentUser(c).ID)
	if err != nil {
		return fail(c, err, "admin")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	users, err := h.svc.AdminListUsers(ctx, admin, limit, offset)
	if err != nil {
		return fail(c, err, "users")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// AdminDeactivateUser disables an account.
// POST /v1/admin/users/:user_id/deactivate
func (h *Handler) AdminDeactivateUser(c echo.Context) error {
	ctx := c.Request().Context()
	admin, err := h.svc.RequireAdmin(ctx, currentUser(c).ID)
	if err != nil {
		return fail(c, err, "admin")
	}

	if err := h.svc.AdminDeactivateUser(ctx, admin, c.Param("user_id")); err != nil {
		return fail(c, err, "user")
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminGrantRole attaches an admin role to a user.
// POST /v1/admin/users/:user_id/role
func (h *Handler) AdminGrantRole(c echo.Context) error {
	ctx := c.Request().Context()
	admin, err := h.svc.RequireAdmin(ctx, currentUser(c).ID)
	if err != nil {
		return fail(c, err, "admin")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return badRequest(c, "role is required")
	}

	grant, err := h.svc.AdminGrantRole(ctx, admin, c.Param("user_id"), domain.AdminRole(req.Role))
	if err != nil {
		return fail(c, err, "user")
	}
	return c.JSON(http.StatusCreated, grant)
}

// AdminRunCleanup triggers a persist-then-evict pass over expired sessions.
// POST /v1/admin/cleanup
func (h *Handler) AdminRunCleanup(c echo.Context) error {
	ctx := c.Request().Context()
	admin, err := h.svc.RequireAdmin(ctx, currentUser(c).ID)
	if err != nil {
		return fail(c, err, "admin")
	}

	report, err := h.svc.AdminRunCleanup(ctx, admin)
	if err != nil {
		return fail(c, err, "cleanup")
	}
	return c.JSON(http.StatusOK, report)
}
