package main

import (
	"encoding/json"
	"sync"
)

type Hub struct {
	mu                sync.Mutex
	clients           map[*Client]struct{}
	broadcastAnalysis chan analyzeResponse
	broadcastQueue    chan queuePayload
	broadcastConfig   chan Config
}

type Client struct {
	hub  *Hub
	send chan []byte
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:           make(map[*Client]struct{}),
		broadcastAnalysis: make(chan analyzeResponse, 32),
		broadcastQueue:    make(chan queuePayload, 64),
		broadcastConfig:   make(chan Config, 8),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-h.broadcastAnalysis:
			h.broadcast(wsMessage{Type: "analysis", Payload: mustMarshal(payload)})
		case payload := <-h.broadcastQueue:
			h.broadcast(wsMessage{Type: "queue", Payload: mustMarshal(payload)})
		case payload := <-h.broadcastConfig:
			h.broadcast(wsMessage{Type: "config", Payload: mustMarshal(payload)})
		}
	}
}

func (h *Hub) broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.sendJSON(msg)
	}
}

// The Publish methods drop the event when the hub is backed up.

func (h *Hub) PublishAnalysis(payload analyzeResponse) {
	select {
	case h.broadcastAnalysis <- payload:
	default:
	}
}

func (h *Hub) PublishQueue(payload queuePayload) {
	select {
	case h.broadcastQueue <- payload:
	default:
	}
}

func (h *Hub) PublishConfig(payload Config) {
	select {
	case h.broadcastConfig <- payload:
	default:
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// sendTo delivers msg to c unless c has already been unregistered.
func (h *Hub) sendTo(c *Client, msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		c.sendJSON(msg)
	}
}

func (h *Hub) HasClients() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0
}

func (c *Client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
