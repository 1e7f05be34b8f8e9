package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// CreateSession opens an empty session ahead of the first message.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	user := currentUser(c)

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.svc.CreateSession(c.Request().Context(), user.ID, req.Title)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusCreated, sess)
}

// ListSessions returns the caller's sessions.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	user := currentUser(c)
	activeOnly := c.QueryParam("active_only") == "true"

	sessions, err := h.svc.ListSessions(c.Request().Context(), user.ID, activeOnly)
	if err != nil {
		return fail(c, err, "sessions")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// GetSession returns one session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	user := currentUser(c)

	sess, err := h.svc.GetSession(c.Request().Context(), c.Param("session_id"), user.ID)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusOK, sess)
}

// GetSessionMessages returns recent messages for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	user := currentUser(c)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	messages, err := h.svc.GetMessages(c.Request().Context(), c.Param("session_id"), user.ID, limit)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// UpdateSession renames, archives, or links a chart to a session.
// PATCH /v1/sessions/:session_id
func (h *Handler) UpdateSession(c echo.Context) error {
	user := currentUser(c)
	sessionID := c.Param("session_id")

	var req struct {
		Title    *string `json:"title,omitempty"`
		Archived *bool   `json:"archived,omitempty"`
		ChartID  *string `json:"chart_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Title == nil && req.Archived == nil && req.ChartID == nil {
		return badRequest(c, "nothing to update")
	}

	ctx := c.Request().Context()
	if req.Title != nil {
		if err := h.svc.RenameSession(ctx, sessionID, user.ID, *req.Title); err != nil {
			return fail(c, err, "session")
		}
	}
	if req.ChartID != nil {
		if err := h.svc.AttachChart(ctx, sessionID, user.ID, *req.ChartID); err != nil {
			return fail(c, err, "chart")
		}
	}
	if req.Archived != nil {
		var archiveErr error
		if *req.Archived {
			archiveErr = h.svc.ArchiveSession(ctx, sessionID, user.ID)
		} else {
			archiveErr = h.svc.RestoreSession(ctx, sessionID, user.ID)
		}
		if archiveErr != nil {
			return fail(c, archiveErr, "session")
		}
	}

	sess, err := h.svc.GetSession(ctx, sessionID, user.ID)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusOK, sess)
}

// PersistSession flushes the cached copy to durable storage.
// POST /v1/sessions/:session_id/persist
func (h *Handler) PersistSession(c echo.Context) error {
	user := currentUser(c)

	inserted, err := h.svc.PersistSession(c.Request().Context(), c.Param("session_id"), user.ID)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"inserted": inserted,
	})
}

// DeleteSession removes a session and its messages everywhere.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	user := currentUser(c)

	if err := h.svc.DeleteSession(c.Request().Context(), c.Param("session_id"), user.ID); err != nil {
		return fail(c, err, "session")
	}
	return c.NoContent(http.StatusNoContent)
}
