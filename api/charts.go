package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/astrialabs/astrochat/internal/service"
)

// CreateChart computes and stores a chart.
// POST /v1/charts
func (h *Handler) CreateChart(c echo.Context) error {
	user := currentUser(c)

	var req service.ChartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	chart, err := h.svc.CreateChart(c.Request().Context(), user.ID, req)
	if err != nil {
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "invalid") {
			return badRequest(c, err.Error())
		}
		return fail(c, err, "chart")
	}
	return c.JSON(http.StatusCreated, chart)
}

// ListCharts returns the caller's charts.
// GET /v1/charts
func (h *Handler) ListCharts(c echo.Context) error {
	user := currentUser(c)

	charts, err := h.svc.ListCharts(c.Request().Context(), user.ID)
	if err != nil {
		return fail(c, err, "charts")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"charts": charts,
	})
}

// GetChart returns one chart.
// GET /v1/charts/:chart_id
func (h *Handler) GetChart(c echo.Context) error {
	user := currentUser(c)

	chart, err := h.svc.GetChart(c.Request().Context(), c.Param("chart_id"), user.ID)
	if err != nil {
		return fail(c, err, "chart")
	}
	return c.JSON(http.StatusOK, chart)
}

// DeleteChart removes one chart.
// DELETE /v1/charts/:chart_id
func (h *Handler) DeleteChart(c echo.Context) error {
	user := currentUser(c)

	if err := h.svc.DeleteChart(c.Request().Context(), c.Param("chart_id"), user.ID); err != nil {
		return fail(c, err, "chart")
	}
	return c.NoContent(http.StatusNoContent)
}
