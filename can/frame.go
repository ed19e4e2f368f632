// Package can defines the CAN frame value type and the bus interface
// consumed by the dispatcher.
package can

import (
	"github.com/pkg/errors"
)

const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

var (
	ErrInvalidID  = errors.New("can: invalid identifier")
	ErrInvalidLen = errors.New("can: invalid data length")
)

// Frame is a classical CAN 2.0 frame. CAN FD is out of scope.
type Frame struct {
	ID       uint32 // 11-bit (std) or 29-bit (ext)
	Extended bool
	Len      uint8 // 0..8
	Data     [8]byte
}

// NewFrame builds a valid data frame, choosing the extended format iff the
// identifier exceeds the 11-bit range.
func NewFrame(id uint32, data []byte) (Frame, error) {
	f := Frame{
		ID:       id,
		Extended: id > maxStdID,
		Len:      uint8(len(data)),
	}
	if len(data) > 8 {
		return Frame{}, ErrInvalidLen
	}
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate returns an error if the frame is not a valid classical CAN frame.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else {
		if f.ID > maxStdID {
			return ErrInvalidID
		}
	}
	return nil
}

// Payload returns the Len-sized slice of the data bytes.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}
