// Package script defines the boundary between the pipeline and the script
// engine that drives it. The engine itself (parsing and running a user
// script that decides what to generate and how to interpret replies) is an
// external collaborator and out of scope here; this package only fixes the
// contract the pipeline depends on.
package script

import (
	"net"

	"github.com/netforge-labs/pktizr/internal/packet"
	"github.com/netforge-labs/pktizr/internal/queue"
)

// Item is a send-queue entry: a packet chain plus whether the transmitter
// should count it as an observable probe.
type Item struct {
	Chain *packet.Chain
	Probe bool
}

// Host is the script engine's contract with the pipeline. Loop is called
// once per enumerated (target, port) tuple; the host enqueues whatever
// chains it wants transmitted directly onto the queue it was given at
// Load. Recv is called once per captured frame that unpacked to at least
// two layers.
type Host interface {
	// Load gives the host the send queue it should enqueue onto.
	Load(q *queue.Queue[Item]) error

	// Loop is called once per (dstAddr, dstPort) tuple. ok is false when
	// the tuple should be skipped without consuming a rate-limiter token.
	Loop(dstAddr net.IP, dstPort uint16) (ok bool)

	// Recv delivers a captured, unpacked chain to the script for analysis.
	Recv(chain *packet.Chain)

	// Close releases script-held resources.
	Close() error
}

// NoOp is a Host that enqueues nothing and discards every reply. It exists
// for pipeline- and device-level tests that need a Host but not a real
// script engine.
type NoOp struct{}

func (NoOp) Load(q *queue.Queue[Item]) error { return nil }

func (NoOp) Loop(dstAddr net.IP, dstPort uint16) bool { return false }

func (NoOp) Recv(chain *packet.Chain) {}

func (NoOp) Close() error { return nil }
