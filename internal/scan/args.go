// Package scan implements the three-worker concurrent pipeline: a
// generator that enumerates (target, port) tuples and asks the script host
// to build packets, a transmitter that packs and injects queued chains at
// a bounded rate, and a receiver that captures and unpacks inbound frames.
package scan

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/netforge-labs/pktizr/internal/queue"
	"github.com/netforge-labs/pktizr/internal/ranges"
	"github.com/netforge-labs/pktizr/internal/rawdev"
	"github.com/netforge-labs/pktizr/internal/script"
)

// Args is the process-wide shared state the three workers read and write:
// read-only range lists and flags, resolved addresses, the raw device and
// send queue, and the atomic counters and lifecycle flags that coordinate
// shutdown.
type Args struct {
	Targets *ranges.List
	Ports   *ranges.List

	Rate  uint64
	Seed  uint64
	Wait  time.Duration
	Count uint64
	Quiet bool

	LocalMAC    net.HardwareAddr
	LocalAddr   net.IP
	GatewayMAC  net.HardwareAddr
	GatewayAddr net.IP

	Device rawdev.Device
	Queue  *queue.Queue[script.Item]

	PktCount atomic.Uint64
	PktSent  atomic.Uint64
	PktProbe atomic.Uint64
	PktRecv  atomic.Uint64

	// Stop is observed by the generator; it is set by the status loop on
	// context cancellation or once the scan's probe target is met.
	Stop atomic.Bool

	// Done is observed by the transmitter and receiver; it is set by the
	// pipeline after the generator has exited.
	Done atomic.Bool
}
