package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/astrialabs/astrochat/internal/service"
)

// PostChat handles one chat exchange.
// POST /v1/chat
func (h *Handler) PostChat(c echo.Context) error {
	user := currentUser(c)

	var req service.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return badRequest(c, "content is required")
	}

	resp, err := h.svc.ProcessMessage(c.Request().Context(), user.ID, req)
	if err != nil {
		return fail(c, err, "session")
	}
	return c.JSON(http.StatusOK, resp)
}

// wsInbound is a client frame on the chat socket.
type wsInbound struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// wsOutbound is a server frame on the chat socket.
type wsOutbound struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ChatWS streams chat replies over a WebSocket. Each inbound frame is one
// user turn; the reply arrives as delta frames followed by a done frame.
// GET /v1/chat/ws
func (h *Handler) ChatWS(c echo.Context) error {
	user := currentUser(c)

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: failed to upgrade websocket: %v", err)
		return err
	}
	defer ws.Close()

	ctx := c.Request().Context()
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: websocket read failed: %v", err)
			}
			return nil
		}

		var in wsInbound
		if err := json.Unmarshal(raw, &in); err != nil {
			writeFrame(ws, wsOutbound{Type: "error", Error: "invalid frame"})
			continue
		}
		in.Content = strings.TrimSpace(in.Content)
		if in.Content == "" {
			writeFrame(ws, wsOutbound{Type: "error", Error: "content is required"})
			continue
		}

		resp, err := h.svc.ProcessMessageStream(ctx, user.ID, service.ChatRequest{
			SessionID: in.SessionID,
			Content:   in.Content,
		}, func(delta string) error {
			return writeFrame(ws, wsOutbound{Type: "delta", Delta: delta})
		})
		if err != nil {
			writeFrame(ws, wsOutbound{Type: "error", Error: "failed to process message"})
			log.Printf("ERROR: websocket chat failed for user %s: %v", user.ID, err)
			continue
		}

		if err := writeFrame(ws, wsOutbound{
			Type:      "done",
			SessionID: resp.SessionID,
			MessageID: resp.Reply.ID,
		}); err != nil {
			return nil
		}
	}
}

func writeFrame(ws *websocket.Conn, frame wsOutbound) error {
	return ws.WriteJSON(frame)
}
