package http

import (
	"fmt"
	"sync"
)

// Hub tracks the gateway's live websocket connections by connection id and
// implements the fan-out Sender. Each connection owns a buffered send queue
// drained by a single writer goroutine, so deliveries to one slow or dead
// connection never block deliveries to the others.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*hubConn
}

type hubConn struct {
	send chan outboundMessage
	done chan struct{}
	once sync.Once
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

func (h *Hub) attach(connID string) *hubConn {
	c := &hubConn{
		send: make(chan outboundMessage, 16),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) detach(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	delete(h.conns, connID)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (c *hubConn) close() {
	c.once.Do(func() { close(c.done) })
}

// Send queues one event for one connection. It fails fast when the
// connection is gone or its queue is full; the caller logs and moves on.
func (h *Hub) Send(connID, event string, data any) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection %s is gone", connID)
	}
	select {
	case c.send <- outboundMessage{Type: event, Payload: data}:
		return nil
	case <-c.done:
		return fmt.Errorf("connection %s is closing", connID)
	default:
		return fmt.Errorf("connection %s send queue full", connID)
	}
}
