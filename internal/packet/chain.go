// Package packet implements the build/pack/unpack codec for
// Ethernet/ARP/IPv4/TCP/UDP/ICMPv4 frames, layered on gopacket's layer
// structs and serialization/decoding machinery.
package packet

import (
	"errors"

	"github.com/gopacket/gopacket/layers"
)

// Kind discriminates the protocol variant held by a Node.
type Kind int

const (
	KindEthernet Kind = iota
	KindARP
	KindIPv4
	KindTCP
	KindUDP
	KindICMPv4
	KindPayload
)

func (k Kind) String() string {
	switch k {
	case KindEthernet:
		return "Ethernet"
	case KindARP:
		return "ARP"
	case KindIPv4:
		return "IPv4"
	case KindTCP:
		return "TCP"
	case KindUDP:
		return "UDP"
	case KindICMPv4:
		return "ICMPv4"
	case KindPayload:
		return "Payload"
	default:
		return "Unknown"
	}
}

// Node is one header (or the trailing opaque payload) in a packet chain. It
// holds exactly one of the protocol variants, selected by Kind.
type Node struct {
	Kind Kind

	Ethernet *layers.Ethernet
	ARP      *layers.ARP
	IPv4     *layers.IPv4
	TCP      *layers.TCP
	UDP      *layers.UDP
	ICMPv4   *layers.ICMPv4

	// Payload holds the node's opaque trailing bytes when Kind ==
	// KindPayload. On an Unpack result this is a zero-copy view into the
	// captured buffer, never a copy.
	Payload []byte
}

// Chain is an ordered sequence of headers, outermost-first.
type Chain struct {
	Nodes []*Node
}

// NewChain builds a chain from the given nodes, outermost first.
func NewChain(nodes ...*Node) *Chain {
	return &Chain{Nodes: nodes}
}

// Append adds a node to the end of the chain and returns the chain, for
// fluent construction.
func (c *Chain) Append(n *Node) *Chain {
	c.Nodes = append(c.Nodes, n)
	return c
}

// Find returns the first node of the given kind, or nil.
func (c *Chain) Find(k Kind) *Node {
	for _, n := range c.Nodes {
		if n.Kind == k {
			return n
		}
	}
	return nil
}

// ErrMalformedChain indicates adjacent layers whose encapsulation is not a
// legal pair (e.g. a TCP node with no preceding IPv4 node).
var ErrMalformedChain = errors.New("packet: malformed chain")

// Validate checks that adjacent layer types form a legal encapsulation:
// Ethernet wraps IPv4 or ARP; IPv4 wraps TCP, UDP, or ICMPv4. An optional
// Payload node may appear as the last node of any chain.
func (c *Chain) Validate() error {
	for i, n := range c.Nodes {
		var next Kind
		hasNext := i+1 < len(c.Nodes)
		if hasNext {
			next = c.Nodes[i+1].Kind
		}
		switch n.Kind {
		case KindEthernet:
			if hasNext && next != KindIPv4 && next != KindARP && next != KindPayload {
				return malformed("Ethernet", next)
			}
		case KindIPv4:
			if hasNext && next != KindTCP && next != KindUDP && next != KindICMPv4 && next != KindPayload {
				return malformed("IPv4", next)
			}
		case KindARP, KindTCP, KindUDP, KindICMPv4:
			if hasNext && next != KindPayload {
				return malformed(n.Kind.String(), next)
			}
		case KindPayload:
			if hasNext {
				return malformed("Payload", next)
			}
		}
	}
	return nil
}

func malformed(outer string, inner Kind) error {
	return &chainError{outer: outer, inner: inner}
}

type chainError struct {
	outer string
	inner Kind
}

func (e *chainError) Error() string {
	return "packet: " + e.outer + " cannot wrap " + e.inner.String()
}

func (e *chainError) Unwrap() error { return ErrMalformedChain }
