// Package websocket provides the client-facing transport: a gorilla
// websocket acceptor, a hub implementing the game's Broadcaster, and
// the JSON command dispatcher.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub tracks connected clients and their room groups, and delivers
// events to them. It implements event.Broadcaster. All methods are safe
// for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client         // handle → client
	groups  map[string]map[string]bool // group → set of handles
	logger  *zap.Logger
}

// NewHub creates an empty Hub.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]bool),
		logger:  logger,
	}
}

// AddClient registers a connected client under its handle.
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.handle] = c
}

// RemoveClient unregisters the handle, closes its client, and drops it
// from every group.
func (h *Hub) RemoveClient(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[handle]; ok {
		c.close()
		delete(h.clients, handle)
	}
	for group, members := range h.groups {
		delete(members, handle)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Join adds member to the named group.
func (h *Hub) Join(group, member string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.groups[group] == nil {
		h.groups[group] = make(map[string]bool)
	}
	h.groups[group][member] = true
}

// Leave removes member from the named group.
func (h *Hub) Leave(group, member string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.groups[group]; ok {
		delete(members, member)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// GroupSize returns the number of members in the named group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// SendToGroup marshals evt once and queues it to every member of the
// named group. A member whose buffer is full loses the event; delivery
// to the rest continues.
func (h *Hub) SendToGroup(group string, evt any) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for member := range h.groups[group] {
		c, ok := h.clients[member]
		if !ok {
			continue
		}
		if err := c.enqueue(data); err != nil {
			h.logger.Warn("dropping group event",
				zap.String("group", group),
				zap.String("member", member),
				zap.Error(err),
			)
		}
	}
	return nil
}

// SendToMember marshals evt and queues it to a single member.
func (h *Hub) SendToMember(member string, evt any) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.clients[member]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return c.enqueue(data)
}
