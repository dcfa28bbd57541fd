package netx

import (
	"fmt"
	"net"
)

// AutoClientIP asks ResolveClientIP to look up the outbound address.
const AutoClientIP = "auto"

// probeTarget only selects a route; UDP dial sends no packets.
const probeTarget = "8.8.8.8:80"

// OutboundIP returns the local address the kernel would use to reach target.
func OutboundIP(target string) (string, error) {
	conn, err := net.Dial("udp", target)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}

// ResolveClientIP turns the configured client_ip into the value forwarded to
// the consig API. "auto" is replaced by the outbound address; anything else is
// returned as is.
func ResolveClientIP(configured string) (string, error) {
	if configured != AutoClientIP {
		return configured, nil
	}
	return OutboundIP(probeTarget)
}
