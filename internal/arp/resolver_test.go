package arp_test

import (
	"net"
	"testing"
	"time"

	"github.com/gopacket/gopacket/layers"
	"github.com/netforge-labs/pktizr/internal/arp"
	"github.com/netforge-labs/pktizr/internal/packet"
	"github.com/netforge-labs/pktizr/internal/rawdev"
	"github.com/stretchr/testify/require"
)

var (
	localMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	localIP   = net.IPv4(10, 0, 0, 1)
	gatewayIP = net.IPv4(10, 0, 0, 254)
	gatewayMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0xfe}
)

func packARPReply() []byte {
	chain := packet.NewChain(
		packet.BuildEthernet(gatewayMAC, localMAC, layers.EthernetTypeARP),
		packet.BuildARP(layers.ARPReply, gatewayMAC, gatewayIP, localMAC, localIP),
	)
	buf := make([]byte, 64)
	n, err := packet.Pack(buf, chain)
	if err != nil {
		panic(err)
	}
	return buf[:n]
}

func TestResolve_MatchingReplyReturnsMAC(t *testing.T) {
	t.Parallel()

	dev := rawdev.NewMockDevice(1)
	dev.Deliver(packARPReply())

	mac, err := arp.Resolve(dev, localMAC, localIP, gatewayIP, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, gatewayMAC, mac)

	injected := dev.Injected()
	require.Len(t, injected, 1)

	sent, _, err := packet.Unpack(injected[0])
	require.NoError(t, err)
	node := sent.Find(packet.KindARP)
	require.NotNil(t, node)
	require.Equal(t, uint16(layers.ARPRequest), node.ARP.Operation)
	require.True(t, net.IP(node.ARP.DstProtAddress).Equal(gatewayIP))
}

func TestResolve_UnrelatedReplyIgnored(t *testing.T) {
	t.Parallel()

	dev := rawdev.NewMockDevice(2)

	otherIP := net.IPv4(10, 0, 0, 99)
	otherMAC := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x63}
	chain := packet.NewChain(
		packet.BuildEthernet(otherMAC, localMAC, layers.EthernetTypeARP),
		packet.BuildARP(layers.ARPReply, otherMAC, otherIP, localMAC, localIP),
	)
	buf := make([]byte, 64)
	n, err := packet.Pack(buf, chain)
	require.NoError(t, err)
	dev.Deliver(buf[:n])
	dev.Deliver(packARPReply())

	mac, err := arp.Resolve(dev, localMAC, localIP, gatewayIP, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, gatewayMAC, mac)
}

func TestResolve_NoReplyTimesOut(t *testing.T) {
	t.Parallel()

	dev := rawdev.NewMockDevice(1)

	_, err := arp.Resolve(dev, localMAC, localIP, gatewayIP, 10*time.Millisecond)
	require.ErrorIs(t, err, arp.ErrTimeout)
}

func TestResolve_ClosedDeviceReturnsError(t *testing.T) {
	t.Parallel()

	dev := rawdev.NewMockDevice(1)
	require.NoError(t, dev.Close())

	_, err := arp.Resolve(dev, localMAC, localIP, gatewayIP, time.Second)
	require.Error(t, err)
}
