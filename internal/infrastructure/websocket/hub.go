// Package websocket fans auction events out to connected spectators. Clients
// subscribe to one auction per connection; the hub bridges the event bus onto
// those sockets.
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chiragxy/DLT-ARTCHAIN/internal/domain"
	"github.com/chiragxy/DLT-ARTCHAIN/pkg/logger"
)

type Hub struct {
	connections map[string]map[*websocket.Conn]struct{} // auctionID -> conns
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*websocket.Conn]struct{}),
		log:         log,
	}
}

func (h *Hub) Register(auctionID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.connections[auctionID] == nil {
		h.connections[auctionID] = make(map[*websocket.Conn]struct{})
	}
	h.connections[auctionID][conn] = struct{}{}
	h.log.Info("WebSocket registered", "auction_id", auctionID)
}

func (h *Hub) Unregister(auctionID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if conns, ok := h.connections[auctionID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, auctionID)
		}
	}
}

// Broadcast sends the event to every connection watching the auction. Dead
// connections are dropped on write failure.
func (h *Hub) Broadcast(event *domain.AuctionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode event", "error", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	conns := h.connections[event.AuctionID]
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Error("WebSocket write failed, dropping connection",
				"auction_id", event.AuctionID, "error", err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.connections, event.AuctionID)
	}
}

// CloseAuction closes every socket watching the auction, typically after the
// auction_closed event has been delivered.
func (h *Hub) CloseAuction(auctionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn := range h.connections[auctionID] {
		conn.Close()
	}
	delete(h.connections, auctionID)
}

// HandleEvent adapts the hub to the event bus handler signature.
func (h *Hub) HandleEvent(event *domain.AuctionEvent) error {
	h.Broadcast(event)
	if event.Type == domain.EventAuctionClosed {
		h.CloseAuction(event.AuctionID)
	}
	return nil
}
