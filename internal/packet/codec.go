package packet

import (
	"errors"
	"fmt"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// ErrBufferTooSmall is returned by Pack when the destination buffer cannot
// hold the serialized chain.
var ErrBufferTooSmall = errors.New("packet: buffer too small")

// ErrTruncated is returned by Unpack when the input is shorter than a
// complete Ethernet header.
var ErrTruncated = errors.New("packet: truncated frame")

// Pack serializes chain into dst, outermost layer first, computing IPv4,
// TCP, UDP, and ICMPv4 checksums and lengths along the way. It returns the
// number of bytes written, or an error if dst is too small or the chain is
// malformed.
func Pack(dst []byte, chain *Chain) (int, error) {
	if err := chain.Validate(); err != nil {
		return 0, err
	}

	var layerList []gopacket.SerializableLayer
	var ipv4 *layers.IPv4

	for _, n := range chain.Nodes {
		switch n.Kind {
		case KindEthernet:
			layerList = append(layerList, n.Ethernet)
		case KindARP:
			layerList = append(layerList, n.ARP)
		case KindIPv4:
			ipv4 = n.IPv4
			layerList = append(layerList, n.IPv4)
		case KindTCP:
			if ipv4 == nil {
				return 0, fmt.Errorf("%w: TCP without preceding IPv4", ErrMalformedChain)
			}
			if err := n.TCP.SetNetworkLayerForChecksum(ipv4); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrMalformedChain, err)
			}
			layerList = append(layerList, n.TCP)
		case KindUDP:
			if ipv4 == nil {
				return 0, fmt.Errorf("%w: UDP without preceding IPv4", ErrMalformedChain)
			}
			if err := n.UDP.SetNetworkLayerForChecksum(ipv4); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrMalformedChain, err)
			}
			layerList = append(layerList, n.UDP)
		case KindICMPv4:
			layerList = append(layerList, n.ICMPv4)
		case KindPayload:
			layerList = append(layerList, gopacket.Payload(n.Payload))
		}
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	size := 0
	for i := len(layerList) - 1; i >= 0; i-- {
		inner := len(buf.Bytes())
		if err := layerList[i].SerializeTo(buf, opts); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedChain, err)
		}
		size = len(buf.Bytes())
		if chain.Nodes[i].Kind == KindEthernet {
			// The Ethernet serializer pads short frames to 60 bytes; that
			// padding is not part of the packed chain.
			size = inner + 14
		}
	}

	out := buf.Bytes()[:size]
	if len(dst) < len(out) {
		return 0, ErrBufferTooSmall
	}
	return copy(dst, out), nil
}

// Unpack parses buf outermost-first starting from Ethernet, stopping when
// the buffer is consumed or an unrecognized upper-layer selector is hit
// (the remainder becomes an opaque payload, not an error). It never copies
// payload bytes: node.Payload and header Contents are views into buf. It
// returns the number of layers parsed, or ErrTruncated if buf is shorter
// than a complete Ethernet header.
func Unpack(buf []byte) (*Chain, int, error) {
	const minEthernetLen = 14
	if len(buf) < minEthernetLen {
		return nil, 0, ErrTruncated
	}

	pkt := gopacket.NewPacket(buf, layers.LayerTypeEthernet, gopacket.NoCopy)

	chain := &Chain{}
	offset := 0
parse:
	for _, l := range pkt.Layers() {
		switch v := l.(type) {
		case *layers.Ethernet:
			chain.Append(&Node{Kind: KindEthernet, Ethernet: v})
		case *layers.ARP:
			chain.Append(&Node{Kind: KindARP, ARP: v})
		case *layers.IPv4:
			chain.Append(&Node{Kind: KindIPv4, IPv4: v})
		case *layers.TCP:
			chain.Append(&Node{Kind: KindTCP, TCP: v})
		case *layers.UDP:
			chain.Append(&Node{Kind: KindUDP, UDP: v})
		case *layers.ICMPv4:
			chain.Append(&Node{Kind: KindICMPv4, ICMPv4: v})
		case *gopacket.Payload:
			if payload := v.LayerContents(); len(payload) > 0 {
				chain.Append(&Node{Kind: KindPayload, Payload: payload})
			}
		default:
			// Unknown selector: remainder is opaque, and we simply stop
			// adding further layers rather than treating it as an error.
			if offset < len(buf) {
				chain.Append(&Node{Kind: KindPayload, Payload: buf[offset:]})
			}
			break parse
		}
		offset += len(l.LayerContents())
	}

	if len(chain.Nodes) == 0 {
		return nil, 0, ErrTruncated
	}
	return chain, len(chain.Nodes), nil
}
