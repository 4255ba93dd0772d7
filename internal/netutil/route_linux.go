//go:build linux

package netutil

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

const procNetRoute = "/proc/net/route"

// DefaultGateway parses /proc/net/route for the default route (destination
// 0.0.0.0) and returns its gateway address and outbound interface name.
func DefaultGateway() (net.IP, string, error) {
	f, err := os.Open(procNetRoute)
	if err != nil {
		return nil, "", fmt.Errorf("netutil: open %s: %w", procNetRoute, err)
	}
	defer f.Close()

	return parseDefaultRoute(f)
}

func parseDefaultRoute(r io.Reader) (net.IP, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Scan() // header line

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 {
			continue
		}

		iface := fields[0]
		dest := fields[1]
		gateway := fields[2]
		flags, err := strconv.ParseUint(fields[3], 16, 16)
		if err != nil {
			continue
		}

		const routeFlagUp = 0x1
		const routeFlagGateway = 0x2
		if dest != "00000000" || flags&(routeFlagUp|routeFlagGateway) != routeFlagUp|routeFlagGateway {
			continue
		}

		ip, err := parseHexLittleEndianIP(gateway)
		if err != nil {
			continue
		}

		return ip, iface, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("netutil: read %s: %w", procNetRoute, err)
	}
	return nil, "", fmt.Errorf("netutil: no default route found in %s", procNetRoute)
}

func parseHexLittleEndianIP(hex string) (net.IP, error) {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return net.IP(b), nil
}
