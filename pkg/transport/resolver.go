package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/random"
	"go.uber.org/zap"
)

// Balancer picks one IPv4 address from a resolved host.
type Balancer interface {
	Name() string
	Pick(host string, ips []net.IP) net.IP
}

// FirstBalancer always picks the first address.
type FirstBalancer struct{}

func (FirstBalancer) Name() string { return "first" }

func (FirstBalancer) Pick(_ string, ips []net.IP) net.IP {
	if len(ips) == 0 {
		return nil
	}
	return ips[0]
}

// RandomBalancer picks a uniformly random address.
type RandomBalancer struct {
	rng *random.Rand
}

// NewRandomBalancer creates a balancer drawing from rng.
func NewRandomBalancer(rng *random.Rand) *RandomBalancer {
	return &RandomBalancer{rng: rng}
}

func (b *RandomBalancer) Name() string { return "random" }

func (b *RandomBalancer) Pick(_ string, ips []net.IP) net.IP {
	if len(ips) == 0 {
		return nil
	}
	return ips[b.rng.Intn(len(ips))]
}

// LookupFunc resolves a host name to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

func defaultLookup(ctx context.Context, host string) ([]net.IP, error) {
	return net.DefaultResolver.LookupIP(ctx, "ip4", host)
}

// Resolver turns "host:port" strings into endpoint addresses.
type Resolver struct {
	balancer Balancer
	lookup   LookupFunc
}

// NewResolver creates a new resolver with the specified balancer
func NewResolver(balancer Balancer) *Resolver {
	return &Resolver{balancer: balancer, lookup: defaultLookup}
}

// DefaultResolver picks the first IPv4 address of a resolved host.
func DefaultResolver() *Resolver {
	return NewResolver(FirstBalancer{})
}

// WithLookup replaces the name lookup, mainly for tests.
func (r *Resolver) WithLookup(lookup LookupFunc) *Resolver {
	r.lookup = lookup
	return r
}

// Resolve accepts "", ":port", "a.b.c.d:port" or "name:port". Empty hosts
// resolve to the unspecified address. Names are looked up and the balancer
// chooses among the IPv4 results.
func (r *Resolver) Resolve(ctx context.Context, addr string) (Address, error) {
	if addr == "" {
		return Address{}, nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		after, ok := strings.CutPrefix(addr, ":")
		if !ok {
			return Address{}, fmt.Errorf("invalid addr %q: %w", addr, err)
		}
		host, portStr = "", after
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("invalid port in %q: %w", addr, err)
	}

	if host == "" {
		return Address{Port: uint16(port)}, nil
	}

	if ip := net.ParseIP(host); ip != nil {
		return AddressFromIP(ip, int(port))
	}

	ips, err := r.lookup(ctx, host)
	if err != nil {
		return Address{}, newOpError("lookup", Address{}, err)
	}

	var v4 []net.IP
	for _, ip := range ips {
		if ip.To4() != nil {
			v4 = append(v4, ip)
		}
	}
	if len(v4) == 0 {
		return Address{}, fmt.Errorf("no IPv4 address for %q", host)
	}

	logging.Debug("DNS lookup completed",
		zap.String("host", host),
		zap.Int("ip_count", len(v4)))

	chosen := r.balancer.Pick(host, v4)
	if chosen == nil {
		return Address{}, fmt.Errorf("balancer failed to select an IP for %q", host)
	}

	logging.Info("Balancer selected IP",
		zap.String("balancer", r.balancer.Name()),
		zap.String("original_addr", addr),
		zap.String("selected_ip", chosen.String()),
		zap.Uint64("port", port))

	return AddressFromIP(chosen, int(port))
}
