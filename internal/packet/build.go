package packet

import (
	"net"

	"github.com/gopacket/gopacket/layers"
)

// TCPFlags selects which control bits are set on a built TCP segment.
type TCPFlags struct {
	SYN, ACK, FIN, RST, PSH, URG, ECE, CWR bool
}

// BuildEthernet fills an Ethernet node. Build does not compute any lengths
// or checksums; those are filled in by Pack.
func BuildEthernet(src, dst net.HardwareAddr, ethType layers.EthernetType) *Node {
	return &Node{
		Kind: KindEthernet,
		Ethernet: &layers.Ethernet{
			SrcMAC:       src,
			DstMAC:       dst,
			EthernetType: ethType,
		},
	}
}

// BuildARP fills an ARP node for IPv4-over-Ethernet.
func BuildARP(op uint16, srcMAC net.HardwareAddr, srcIP net.IP, dstMAC net.HardwareAddr, dstIP net.IP) *Node {
	return &Node{
		Kind: KindARP,
		ARP: &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         op,
			SourceHwAddress:   []byte(srcMAC),
			SourceProtAddress: srcIP.To4(),
			DstHwAddress:      []byte(dstMAC),
			DstProtAddress:    dstIP.To4(),
		},
	}
}

// BuildIPv4 fills an IPv4 node. Total length and header checksum are
// computed by Pack.
func BuildIPv4(src, dst net.IP, proto layers.IPProtocol, ttl uint8) *Node {
	return &Node{
		Kind: KindIPv4,
		IPv4: &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      ttl,
			Protocol: proto,
			SrcIP:    src.To4(),
			DstIP:    dst.To4(),
		},
	}
}

// BuildTCP fills a TCP node. The checksum is computed by Pack once the
// preceding IPv4 node's addresses are known.
func BuildTCP(sport, dport uint16, flags TCPFlags, seq, ack uint32) *Node {
	return &Node{
		Kind: KindTCP,
		TCP: &layers.TCP{
			SrcPort:    layers.TCPPort(sport),
			DstPort:    layers.TCPPort(dport),
			Seq:        seq,
			Ack:        ack,
			DataOffset: 5,
			Window:     65535,
			SYN:        flags.SYN,
			ACK:        flags.ACK,
			FIN:        flags.FIN,
			RST:        flags.RST,
			PSH:        flags.PSH,
			URG:        flags.URG,
			ECE:        flags.ECE,
			CWR:        flags.CWR,
		},
	}
}

// BuildUDP fills a UDP node. Length and checksum are computed by Pack.
func BuildUDP(sport, dport uint16) *Node {
	return &Node{
		Kind: KindUDP,
		UDP: &layers.UDP{
			SrcPort: layers.UDPPort(sport),
			DstPort: layers.UDPPort(dport),
		},
	}
}

// BuildICMPv4 fills an ICMPv4 node. The checksum is computed by Pack.
func BuildICMPv4(typ, code uint8, id, seq uint16) *Node {
	return &Node{
		Kind: KindICMPv4,
		ICMPv4: &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(typ, code),
			Id:       id,
			Seq:      seq,
		},
	}
}

// BuildPayload wraps opaque trailing bytes as the last node of a chain.
func BuildPayload(data []byte) *Node {
	return &Node{Kind: KindPayload, Payload: data}
}
