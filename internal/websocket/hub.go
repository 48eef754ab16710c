package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"go-fileops/internal/event"
)

// Hub fans bus events out to connected clients. All client bookkeeping happens
// on the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		bus:        bus,
	}
}

func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			slog.Debug("websocket client connected", "job_id", client.jobID, "clients", len(h.clients))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e event.Event) {
	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "type", e.Type, "error", err)
		return
	}

	for client := range h.clients {
		if !client.wants(e) {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Slow consumer.
			close(client.send)
			delete(h.clients, client)
		}
	}
}
