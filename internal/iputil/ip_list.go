package iputil

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/heyvito/gateway"
)

// NoAddressErr is returned when no usable address could be detected.
var NoAddressErr = fmt.Errorf("no address could be detected")

// defaultIPsFn is replaced by tests.
var defaultIPsFn = gateway.FindDefaultIPs

// GetDefaultIP returns the address of the interface holding the default
// route, preferring IPv4 unless preferIPv6 is set.
func GetDefaultIP(preferIPv6 bool) (addr netip.Addr, err error) {
	var ips []netip.Addr
	ips, err = defaultIPsFn()
	if err != nil {
		return
	}

	for _, v := range ips {
		if v.Is6() == preferIPv6 {
			return v, nil
		}
	}
	for _, v := range ips {
		return v, nil
	}

	err = NoAddressErr
	return
}

// AdvertiseAddress returns the host:port clients should use to reach a
// service bound to listen. Unspecified hosts are replaced by the default
// route address, or by loopback when none can be detected.
func AdvertiseAddress(listen string) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if _, err = strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port in %q: %w", listen, err)
	}

	if host != "" {
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.IsUnspecified() {
			return net.JoinHostPort(host, port), nil
		}
	}

	ip, err := GetDefaultIP(false)
	if err != nil {
		ip = netip.AddrFrom4([4]byte{127, 0, 0, 1})
	}
	return net.JoinHostPort(ip.String(), port), nil
}
