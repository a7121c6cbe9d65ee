package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "github.com/chiragxy/DLT-ARTCHAIN/internal/infrastructure/websocket"
	"github.com/chiragxy/DLT-ARTCHAIN/internal/services"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades spectators onto the auction event stream. One
// auction per connection; the socket only receives.
type WebSocketHandler struct {
	engine *services.Engine
	hub    *ws.Hub
	log    logger.Logger
}

func NewWebSocketHandler(engine *services.Engine, hub *ws.Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{engine: engine, hub: hub, log: log}
}

func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	auctionID := c.Param("id")
	if _, err := h.engine.GetAuction(c.Request().Context(), auctionID); err != nil {
		return c.JSON(http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "auction_id", auctionID, "error", err)
		return err
	}

	h.hub.Register(auctionID, conn)

	// Drain the read side so close frames are processed; unregister on any
	// read error.
	go func() {
		defer func() {
			h.hub.Unregister(auctionID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}
