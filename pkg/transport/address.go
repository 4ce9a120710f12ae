package transport

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Address is an IPv4 endpoint kept in host byte order. Conversion to network
// byte order happens only at the socket boundary.
type Address struct {
	Host uint32
	Port uint16
}

// NewAddress builds an address from dotted-quad octets.
func NewAddress(a, b, c, d uint8, port uint16) Address {
	addr := Address{Port: port}
	addr.SetHost(a, b, c, d)
	return addr
}

// AddressFromIP converts an IPv4 net.IP and port.
func AddressFromIP(ip net.IP, port int) (Address, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return Address{}, fmt.Errorf("address %s is not IPv4", ip)
	}
	if port < 0 || port > 0xffff {
		return Address{}, fmt.Errorf("port %d out of range", port)
	}
	return Address{Host: binary.BigEndian.Uint32(ip4), Port: uint16(port)}, nil
}

// ParseAddress parses "a.b.c.d:port". An empty host (":port") means any
// local interface.
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("invalid port in %q: %w", s, err)
	}
	if host == "" {
		return Address{Port: uint16(port)}, nil
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.Is4() {
		return Address{}, fmt.Errorf("invalid IPv4 host in %q", s)
	}
	b := ip.As4()
	return Address{Host: binary.BigEndian.Uint32(b[:]), Port: uint16(port)}, nil
}

// SetHost replaces the host with the given octets.
func (a *Address) SetHost(o1, o2, o3, o4 uint8) {
	a.Host = uint32(o1)<<24 | uint32(o2)<<16 | uint32(o3)<<8 | uint32(o4)
}

// SetPort replaces the port.
func (a *Address) SetPort(port uint16) {
	a.Port = port
}

// Equal reports whether both addresses name the same host. The port is not
// part of peer identity.
func (a Address) Equal(b Address) bool {
	return a.Host == b.Host
}

// Compare orders addresses by host, then port.
func (a Address) Compare(b Address) int {
	switch {
	case a.Host < b.Host:
		return -1
	case a.Host > b.Host:
		return 1
	case a.Port < b.Port:
		return -1
	case a.Port > b.Port:
		return 1
	}
	return 0
}

// IsUnspecified reports whether the host is 0.0.0.0.
func (a Address) IsUnspecified() bool {
	return a.Host == 0
}

// Octets returns the host in network byte order.
func (a Address) Octets() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], a.Host)
	return b
}

// IP returns the host as a net.IP.
func (a Address) IP() net.IP {
	b := a.Octets()
	return net.IPv4(b[0], b[1], b[2], b[3])
}

// AddrPort returns the address as a netip.AddrPort.
func (a Address) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(netip.AddrFrom4(a.Octets()), a.Port)
}

func (a Address) String() string {
	return a.AddrPort().String()
}

// LocalAddresses lists the IPv4 addresses of interfaces that are up, skipping
// loopback and link-local addresses.
func LocalAddresses() ([]Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var out []Address
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4.IsLinkLocalUnicast() {
				continue
			}
			a, _ := AddressFromIP(ip4, 0)
			out = append(out, a)
		}
	}
	return out, nil
}
