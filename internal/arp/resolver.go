// Package arp resolves the gateway's MAC address on a raw device before the
// scan pipeline starts, by sending a single ARP request and polling for a
// matching reply.
package arp

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gopacket/gopacket/layers"
	"github.com/netforge-labs/pktizr/internal/packet"
	"github.com/netforge-labs/pktizr/internal/rawdev"
)

// DefaultTimeout is how long Resolve polls for a reply before giving up.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when no matching ARP reply arrives within timeout.
var ErrTimeout = errors.New("arp: resolver timeout")

var broadcastMAC = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
var zeroMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// Resolve sends an ARP request for targetIP (broadcast Ethernet
// destination, sender = localMAC/localIP) on dev, then polls Capture for up
// to timeout. A reply matches iff its ARP psrc equals targetIP and pdst
// equals localIP; on match, the reply's hwsrc is returned.
func Resolve(dev rawdev.Device, localMAC net.HardwareAddr, localIP, targetIP net.IP, timeout time.Duration) (net.HardwareAddr, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	request := packet.NewChain(
		packet.BuildEthernet(localMAC, broadcastMAC, layers.EthernetTypeARP),
		packet.BuildARP(layers.ARPRequest, localMAC, localIP, zeroMAC, targetIP),
	)

	buf := make([]byte, 64)
	n, err := packet.Pack(buf, request)
	if err != nil {
		return nil, fmt.Errorf("arp: build request: %w", err)
	}
	if err := dev.Inject(buf[:n]); err != nil {
		return nil, fmt.Errorf("arp: inject request: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame, err := dev.Capture()
		if err != nil {
			return nil, fmt.Errorf("arp: capture: %w", err)
		}
		if frame == nil {
			continue
		}

		mac, ok := matchReply(frame, localIP, targetIP)
		dev.Release()
		if ok {
			return mac, nil
		}
	}

	return nil, ErrTimeout
}

func matchReply(frame []byte, localIP, targetIP net.IP) (net.HardwareAddr, bool) {
	chain, layerCount, err := packet.Unpack(frame)
	if err != nil || layerCount < 2 {
		return nil, false
	}

	node := chain.Find(packet.KindARP)
	if node == nil {
		return nil, false
	}

	if !net.IP(node.ARP.SourceProtAddress).Equal(targetIP) {
		return nil, false
	}
	if !net.IP(node.ARP.DstProtAddress).Equal(localIP) {
		return nil, false
	}

	mac := make(net.HardwareAddr, len(node.ARP.SourceHwAddress))
	copy(mac, node.ARP.SourceHwAddress)
	return mac, true
}
