package websocket

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

// Handler upgrades /ws requests and runs the read and write pumps.
type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler allows same-origin connections plus the configured CORS origins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed["*"] || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.HandleConnect)
}

// HandleConnect upgrades the connection, registers the client and blocks in
// the read pump until the client goes away.
func (h *Handler) HandleConnect(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return nil
	}

	ws.SetReadLimit(h.hub.cfg.MaxMessageSize)

	client := NewClient(ws, c.RealIP(), c.Request().UserAgent(), time.Now())
	ws.SetPongHandler(func(string) error {
		h.hub.Touch(client)
		return nil
	})
	ws.SetPingHandler(func(data string) error {
		h.hub.Touch(client)
		return ws.WriteControl(gorillawebsocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	go writePump(client, ws)
	h.hub.Register(client)
	h.readPump(c.Request().Context(), client, ws)
	return nil
}

func (h *Handler) readPump(ctx context.Context, client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if gorillawebsocket.IsUnexpectedCloseError(err, gorillawebsocket.CloseGoingAway, gorillawebsocket.CloseNormalClosure) {
				h.hub.logger.Debug().Err(err).Str("client_id", client.ID).Msg("read failed")
			}
			return
		}
		h.hub.HandleMessage(ctx, client, message)
	}
}

func writePump(client *Client, ws *gorillawebsocket.Conn) {
	defer ws.Close()

	for message := range client.Send {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = ws.WriteControl(gorillawebsocket.CloseMessage,
		gorillawebsocket.FormatCloseMessage(gorillawebsocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
