package can

import (
	"github.com/pkg/errors"
)

// ErrClosed indicates the bus endpoint has been closed.
var ErrClosed = errors.New("can: closed")

// Handler consumes one received frame. It is invoked on the driver's
// delivery goroutine and must not block.
type Handler func(Frame)

// Bus is the controller abstraction the dispatcher talks to.
// Implementations must be safe for concurrent use.
type Bus interface {
	// Send transmits a frame. It may block until the frame is queued.
	Send(Frame) error

	// Subscribe registers a receive handler. All subscribed handlers see
	// every inbound frame; hardware filtering is the implementation's business.
	Subscribe(Handler)

	// Close releases resources. Further Send calls return ErrClosed.
	Close() error
}
