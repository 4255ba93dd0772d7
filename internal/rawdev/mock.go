package rawdev

import (
	"sync"
	"time"
)

// MockDevice is a deterministic in-memory Device for tests: Inject appends
// to a record of transmitted frames, and Capture delivers frames pushed
// onto an inbound channel by the test, or (nil, nil) after a short
// simulated timeout when the channel is empty.
type MockDevice struct {
	mu        sync.Mutex
	injected  [][]byte
	inbound   chan []byte
	closed    bool
	idleDelay time.Duration
}

// NewMockDevice creates a MockDevice with the given inbound frame buffer
// size.
func NewMockDevice(inboundBuffer int) *MockDevice {
	return &MockDevice{
		inbound:   make(chan []byte, inboundBuffer),
		idleDelay: time.Millisecond,
	}
}

// GetBuf returns a fresh scratch buffer; MockDevice does not reuse buffers,
// since tests care about content, not allocation behavior.
func (d *MockDevice) GetBuf() []byte {
	return make([]byte, 2048)
}

// Inject records buf as transmitted.
func (d *MockDevice) Inject(buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.injected = append(d.injected, cp)
	return nil
}

// Deliver pushes a frame to be returned by a subsequent Capture, as if
// received off the wire. It is the test-side counterpart of Inject.
func (d *MockDevice) Deliver(frame []byte) {
	d.inbound <- frame
}

// Injected returns a copy of all frames passed to Inject so far.
func (d *MockDevice) Injected() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.injected))
	copy(out, d.injected)
	return out
}

// Capture returns the next delivered frame, or (nil, nil) if none arrives
// within a short simulated timeout.
func (d *MockDevice) Capture() ([]byte, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	select {
	case frame := <-d.inbound:
		return frame, nil
	case <-time.After(d.idleDelay):
		return nil, nil
	}
}

// Release is a no-op: MockDevice frames are independently allocated, not
// pooled.
func (d *MockDevice) Release() {}

// Close marks the device closed; further operations return ErrClosed.
func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
