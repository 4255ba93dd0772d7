package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/gopacket/gopacket/layers"
)

// ErrChecksumInvalid is returned by ValidateChecksums when a layer's
// checksum, as transmitted, does not satisfy the ones'-complement identity.
var ErrChecksumInvalid = errors.New("packet: invalid checksum")

// fold computes the 16-bit ones'-complement sum of data, padding a trailing
// odd byte with a zero low byte, per RFC 1071.
func fold(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return uint16(sum)
}

func pseudoHeader(src, dst net.IP, proto layers.IPProtocol, length int) []byte {
	buf := make([]byte, 12)
	copy(buf[0:4], src.To4())
	copy(buf[4:8], dst.To4())
	buf[8] = 0
	buf[9] = byte(proto)
	binary.BigEndian.PutUint16(buf[10:12], uint16(length))
	return buf
}

// ValidateChecksums independently recomputes and checks every checksummed
// layer in chain (IPv4 header, TCP, UDP, ICMPv4). Unlike Unpack, which never
// rejects a frame on a bad checksum, this is a separate operation callers
// may invoke on demand.
func ValidateChecksums(chain *Chain) error {
	var ipv4 *layers.IPv4
	for _, n := range chain.Nodes {
		switch n.Kind {
		case KindIPv4:
			ipv4 = n.IPv4
			if fold(n.IPv4.LayerContents()) != 0xFFFF {
				return fmt.Errorf("%w: ipv4 header", ErrChecksumInvalid)
			}
		case KindTCP:
			if ipv4 == nil {
				continue
			}
			full := append(append([]byte{}, n.TCP.LayerContents()...), n.TCP.LayerPayload()...)
			pseudo := pseudoHeader(ipv4.SrcIP, ipv4.DstIP, layers.IPProtocolTCP, len(full))
			if fold(append(pseudo, full...)) != 0xFFFF {
				return fmt.Errorf("%w: tcp segment", ErrChecksumInvalid)
			}
		case KindUDP:
			if ipv4 == nil {
				continue
			}
			full := append(append([]byte{}, n.UDP.LayerContents()...), n.UDP.LayerPayload()...)
			pseudo := pseudoHeader(ipv4.SrcIP, ipv4.DstIP, layers.IPProtocolUDP, len(full))
			if fold(append(pseudo, full...)) != 0xFFFF {
				return fmt.Errorf("%w: udp datagram", ErrChecksumInvalid)
			}
		case KindICMPv4:
			full := append(append([]byte{}, n.ICMPv4.LayerContents()...), n.ICMPv4.LayerPayload()...)
			if fold(full) != 0xFFFF {
				return fmt.Errorf("%w: icmpv4 message", ErrChecksumInvalid)
			}
		}
	}
	return nil
}
