// Package rawdev abstracts the raw link-layer device the transmitter
// injects frames into and the receiver captures frames from. The core has
// no kernel networking stack of its own; this is the only place that
// touches the wire.
package rawdev

import "errors"

// ErrClosed is returned by operations on a device that has already been
// closed.
var ErrClosed = errors.New("rawdev: device closed")

// Device is the raw link-layer device contract. A buffer returned by
// Capture remains valid until the matching Release. Capture returns
// (nil, nil) if no frame was ready within the implementation's short
// internal timeout, not an error.
type Device interface {
	// GetBuf reserves a transmit-sized buffer.
	GetBuf() []byte

	// Inject commits buf (as returned by GetBuf, or any byte slice of at
	// most that capacity) to the wire.
	Inject(buf []byte) error

	// Capture returns the next received frame, or (nil, nil) if none
	// arrived within the device's internal timeout.
	Capture() ([]byte, error)

	// Release returns the most recently captured frame's storage. It must
	// be called exactly once per non-nil Capture result.
	Release()

	// Close tears the device down. Subsequent operations return
	// ErrClosed.
	Close() error
}
