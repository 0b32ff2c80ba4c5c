package windowsync

import (
	"context"
	"sync"
)

// Handle reaches one window. Send never blocks and reports whether the
// message was queued; Closed reports that the window is gone.
type Handle interface {
	Send(msg Message) bool
	Closed() bool
}

// Navigator jumps a document viewer to a page. overlay.Viewer implements it.
type Navigator interface {
	NavigateTo(ctx context.Context, page int) error
}

// ChannelHandle is a Handle over a buffered channel. Sends to a full or
// closed handle are dropped.
type ChannelHandle struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
}

// NewChannelHandle creates a handle with the given buffer size.
func NewChannelHandle(size int) *ChannelHandle {
	return &ChannelHandle{ch: make(chan Message, max(size, 1))}
}

// Send implements Handle.
func (h *ChannelHandle) Send(msg Message) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return false
	}
	select {
	case h.ch <- msg:
		return true
	default:
		return false
	}
}

// Closed implements Handle.
func (h *ChannelHandle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

// C returns the receive side.
func (h *ChannelHandle) C() <-chan Message {
	return h.ch
}

// Close marks the handle closed and ends the receive side. Safe to call twice.
func (h *ChannelHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.ch)
	}
}
