// Package netutil resolves the outbound interface, local address, and
// default gateway used to open the raw device and seed ARP resolution.
package netutil

import (
	"fmt"
	"net"
)

// ResolveInterface returns the interface named name along with its first
// usable (non-loopback) address, preferring IPv4.
func ResolveInterface(name string) (*net.Interface, net.IP, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, nil, fmt.Errorf("netutil: interface %s not found: %w", name, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("netutil: list addrs for %s: %w", name, err)
	}

	var v6 net.IP
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP == nil || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return iface, v4, nil
		}
		if v6 == nil {
			v6 = ipNet.IP
		}
	}

	if v6 != nil {
		return iface, v6, nil
	}

	return nil, nil, fmt.Errorf("netutil: interface %s has no usable address", name)
}

// DefaultInterface returns the interface the kernel would use to reach the
// public internet, found without sending any packets by asking the kernel
// which local address it would pick for a UDP dial.
func DefaultInterface() (*net.Interface, error) {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return nil, fmt.Errorf("netutil: determine default route: %w", err)
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("netutil: unexpected local address type %T", conn.LocalAddr())
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("netutil: list interfaces: %w", err)
	}

	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if ok && ipNet.IP.Equal(localAddr.IP) {
				return &ifaces[i], nil
			}
		}
	}

	return nil, fmt.Errorf("netutil: no interface owns address %s", localAddr.IP)
}
