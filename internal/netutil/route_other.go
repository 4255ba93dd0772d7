//go:build !linux

package netutil

import (
	"fmt"
	"net"
	"runtime"
)

// DefaultGateway is only implemented on Linux (via /proc/net/route); on
// other platforms callers must supply --gateway-addr explicitly.
func DefaultGateway() (net.IP, string, error) {
	return nil, "", fmt.Errorf("netutil: default gateway lookup is not implemented on %s, pass --gateway-addr", runtime.GOOS)
}
