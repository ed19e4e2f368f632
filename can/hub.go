package can

import (
	"sync"
)

// Hub is an in-memory bus shared by any number of endpoints. A frame sent on
// one endpoint is delivered, in send order, to the handlers of every other
// endpoint. The sender does not hear its own frames, matching controller
// behavior on a real bus.
type Hub struct {
	mu      sync.Mutex
	members []*Endpoint
}

func NewHub() *Hub {
	return &Hub{}
}

// Join attaches a new endpoint to the hub.
func (h *Hub) Join() *Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := &Endpoint{hub: h}
	h.members = append(h.members, e)
	return e
}

func (h *Hub) broadcast(from *Endpoint, f Frame) {
	h.mu.Lock()
	members := make([]*Endpoint, len(h.members))
	copy(members, h.members)
	h.mu.Unlock()

	for _, m := range members {
		if m == from {
			continue
		}
		m.deliver(f)
	}
}

// Endpoint is one attachment point of a Hub. It implements Bus.
type Endpoint struct {
	hub *Hub

	mu       sync.Mutex
	handlers []Handler
	closed   bool
}

var _ Bus = (*Endpoint)(nil)

func (e *Endpoint) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	e.hub.broadcast(e, f)
	return nil
}

func (e *Endpoint) Subscribe(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.handlers = nil
	return nil
}

func (e *Endpoint) deliver(f Frame) {
	e.mu.Lock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	for _, h := range handlers {
		h(f)
	}
}
