package compose

import (
	"errors"
	"fmt"
	"net"

	ma "github.com/multiformats/go-multiaddr"
)

// ErrInvalidIP is returned when the public address is not an IP literal.
var ErrInvalidIP = errors.New("invalid ip address")

// AnnounceAddrs returns the TCP and websocket multiaddrs a node announces to peers.
func AnnounceAddrs(ip string, set PortSet) ([]ma.Multiaddr, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	proto := "ip4"
	if parsed.To4() == nil {
		proto = "ip6"
	}

	tcp, err := ma.NewMultiaddr(fmt.Sprintf("/%s/%s/tcp/%d", proto, parsed, set.P2PTCP))
	if err != nil {
		return nil, fmt.Errorf("failed to build tcp announce address: %w", err)
	}
	ws, err := ma.NewMultiaddr(fmt.Sprintf("/%s/%s/ws/tcp/%d", proto, parsed, set.P2PWS))
	if err != nil {
		return nil, fmt.Errorf("failed to build ws announce address: %w", err)
	}
	return []ma.Multiaddr{tcp, ws}, nil
}
