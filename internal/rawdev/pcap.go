package rawdev

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopacket/gopacket/pcap"
)

// defaultCaptureTimeout bounds how long Capture blocks before returning
// (nil, nil), matching the pipeline's expectation that capture returns
// promptly enough for the done/stop flags to be observed.
const defaultCaptureTimeout = 200 * time.Millisecond

// PcapDevice is the production Device backend, a thin wrapper over libpcap
// via gopacket/gopacket/pcap. It requires CAP_NET_RAW (or running as root)
// on the host interface.
type PcapDevice struct {
	handle *pcap.Handle

	txBuf []byte

	captureMu  sync.Mutex
	outPending bool

	closed atomic.Bool
}

// OpenLive opens iface for live packet injection and capture.
func OpenLive(iface string, snaplen int32, promisc bool, timeout time.Duration) (*PcapDevice, error) {
	if timeout <= 0 {
		timeout = defaultCaptureTimeout
	}
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, fmt.Errorf("rawdev: open %s: %w", iface, err)
	}
	return &PcapDevice{
		handle: handle,
		txBuf:  make([]byte, snaplen),
	}, nil
}

// GetBuf returns a reusable transmit-sized scratch buffer. Callers must
// slice it down to the actual frame length before calling Inject.
func (d *PcapDevice) GetBuf() []byte {
	return d.txBuf
}

// Inject writes buf to the wire.
func (d *PcapDevice) Inject(buf []byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.handle.WritePacketData(buf)
}

// Capture returns the next received frame, zero-copy, or (nil, nil) on the
// handle's internal read timeout. The returned slice is valid until
// Release.
func (d *PcapDevice) Capture() ([]byte, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	d.captureMu.Lock()
	defer d.captureMu.Unlock()

	data, _, err := d.handle.ZeroCopyReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rawdev: capture: %w", err)
	}
	d.outPending = true
	return data, nil
}

// Release returns the most recently captured frame's storage. Libpcap's
// zero-copy buffer is only valid until the next read, so Release frees
// nothing; it only clears the pending-frame flag under the capture lock.
func (d *PcapDevice) Release() {
	d.captureMu.Lock()
	d.outPending = false
	d.captureMu.Unlock()
}

// Close tears the device down.
func (d *PcapDevice) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.handle.Close()
	return nil
}
