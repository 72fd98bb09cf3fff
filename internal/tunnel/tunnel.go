// Package tunnel brings up the WireGuard session that carries the control
// surface and reports whether it is established.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// handshakeTimeout is how long a peer handshake counts as live. WireGuard
// rejects sessions older than 180s.
const handshakeTimeout = 180 * time.Second

var (
	// ErrInvalidAddress is returned when the local tunnel address does not parse.
	ErrInvalidAddress = errors.New("invalid tunnel address")
	// ErrInvalidKey is returned when a WireGuard key does not parse.
	ErrInvalidKey = errors.New("invalid tunnel key")
)

// Config describes the local end and the single remote peer.
type Config struct {
	Interface         string
	LocalAddress      netip.Addr
	PrefixLength      int
	PrivateKey        string
	EndpointHost      string
	EndpointPublicKey string
	EndpointPort      int
	Keepalive         time.Duration
	AllowedIPs        []string
}

// ParseAddress parses the local tunnel address.
func ParseAddress(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w %q: %w", ErrInvalidAddress, s, err)
	}
	return addr, nil
}

// DeviceClient is the subset of *wgctrl.Client used here.
type DeviceClient interface {
	ConfigureDevice(name string, cfg wgtypes.Config) error
	Device(name string) (*wgtypes.Device, error)
	Close() error
}

// Resolver maps the endpoint host to an address.
type Resolver func(ctx context.Context, host string) (netip.Addr, error)

// WireGuard creates and configures a kernel WireGuard interface.
type WireGuard struct {
	client  DeviceClient
	links   Links
	resolve Resolver
	now     func() time.Time
	logger  *slog.Logger

	mu         sync.RWMutex
	iface      string
	peer       wgtypes.Key
	configured bool
}

// Open connects to the system WireGuard control interface.
func Open(logger *slog.Logger) (*WireGuard, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open wireguard control: %w", err)
	}
	return NewWireGuard(client, NetlinkLinks{}, nil, logger), nil
}

// NewWireGuard wraps client and links. A nil resolver uses the system DNS
// resolver.
func NewWireGuard(client DeviceClient, links Links, resolve Resolver, logger *slog.Logger) *WireGuard {
	if resolve == nil {
		resolve = systemResolve
	}
	return &WireGuard{
		client:  client,
		links:   links,
		resolve: resolve,
		now:     time.Now,
		logger:  logger,
	}
}

// Begin creates the interface if needed, configures the local key and the
// remote peer, assigns the local address, routes the allowed networks and
// raises the link. The handshake itself happens asynchronously;
// IsInitialized reports it.
func (w *WireGuard) Begin(ctx context.Context, cfg Config) error {
	local, err := localPrefix(cfg.LocalAddress, cfg.PrefixLength)
	if err != nil {
		return err
	}

	privateKey, err := wgtypes.ParseKey(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: private key: %w", ErrInvalidKey, err)
	}
	peerKey, err := wgtypes.ParseKey(cfg.EndpointPublicKey)
	if err != nil {
		return fmt.Errorf("%w: endpoint public key: %w", ErrInvalidKey, err)
	}

	allowed, err := parseAllowedIPs(cfg.AllowedIPs)
	if err != nil {
		return err
	}

	endpointAddr, err := w.resolve(ctx, cfg.EndpointHost)
	if err != nil {
		return fmt.Errorf("failed to resolve tunnel endpoint %s: %w", cfg.EndpointHost, err)
	}
	endpoint := net.UDPAddrFromAddrPort(netip.AddrPortFrom(endpointAddr, uint16(cfg.EndpointPort)))

	peer := wgtypes.PeerConfig{
		PublicKey:         peerKey,
		Endpoint:          endpoint,
		ReplaceAllowedIPs: true,
		AllowedIPs:        allowed,
	}
	if cfg.Keepalive > 0 {
		keepalive := cfg.Keepalive
		peer.PersistentKeepaliveInterval = &keepalive
	}

	w.logger.Info("Initializing WireGuard",
		"interface", cfg.Interface,
		"local_ip", local.String(),
		"endpoint", endpoint.String(),
		"peer", peerKey.String())

	if err := w.links.Ensure(cfg.Interface); err != nil {
		return err
	}

	if err := w.client.ConfigureDevice(cfg.Interface, wgtypes.Config{
		PrivateKey:   &privateKey,
		ReplacePeers: true,
		Peers:        []wgtypes.PeerConfig{peer},
	}); err != nil {
		return fmt.Errorf("failed to configure %s: %w", cfg.Interface, err)
	}

	if err := w.links.SetAddress(cfg.Interface, local); err != nil {
		return err
	}
	for _, dst := range routes(allowed, local) {
		if err := w.links.AddRoute(cfg.Interface, dst); err != nil {
			return err
		}
	}
	if err := w.links.Up(cfg.Interface); err != nil {
		return err
	}

	w.mu.Lock()
	w.iface = cfg.Interface
	w.peer = peerKey
	w.configured = true
	w.mu.Unlock()

	return nil
}

// IsInitialized reports whether the peer completed a handshake recently.
func (w *WireGuard) IsInitialized() bool {
	w.mu.RLock()
	iface, peerKey, configured := w.iface, w.peer, w.configured
	w.mu.RUnlock()

	if !configured {
		return false
	}

	dev, err := w.client.Device(iface)
	if err != nil {
		return false
	}
	for _, p := range dev.Peers {
		if p.PublicKey != peerKey || p.LastHandshakeTime.IsZero() {
			continue
		}
		return w.now().Sub(p.LastHandshakeTime) < handshakeTimeout
	}
	return false
}

// Close releases the control handle.
func (w *WireGuard) Close() error {
	return w.client.Close()
}

func parseAllowedIPs(cidrs []string) ([]net.IPNet, error) {
	if len(cidrs) == 0 {
		cidrs = []string{"0.0.0.0/0"}
	}
	out := make([]net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, fmt.Errorf("%w: allowed ip %q: %w", ErrInvalidAddress, c, err)
		}
		out = append(out, *n)
	}
	return out, nil
}

// localPrefix is the interface address. A zero length means a host prefix.
func localPrefix(addr netip.Addr, bits int) (netip.Prefix, error) {
	if !addr.IsValid() {
		return netip.Prefix{}, fmt.Errorf("%w: local address not set", ErrInvalidAddress)
	}
	if bits == 0 {
		bits = addr.BitLen()
	}
	prefix := netip.PrefixFrom(addr, bits)
	if !prefix.IsValid() {
		return netip.Prefix{}, fmt.Errorf("%w: prefix length %d for %s", ErrInvalidAddress, bits, addr)
	}
	return prefix, nil
}

// routes returns the allowed networks that need a route through the
// interface. Default routes are left to the uplink, and networks already
// covered by the local prefix get the kernel's connected route.
func routes(allowed []net.IPNet, local netip.Prefix) []netip.Prefix {
	var out []netip.Prefix
	for _, n := range allowed {
		ones, _ := n.Mask.Size()
		addr, ok := netip.AddrFromSlice(n.IP)
		if !ok || ones == 0 {
			continue
		}
		dst := netip.PrefixFrom(addr.Unmap(), ones).Masked()
		if dst == local.Masked() {
			continue
		}
		out = append(out, dst)
	}
	return out
}

func systemResolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, err
	}
	for _, a := range addrs {
		if a.Is4() || a.Is4In6() {
			return a.Unmap(), nil
		}
	}
	if len(addrs) > 0 {
		return addrs[0], nil
	}
	return netip.Addr{}, fmt.Errorf("no addresses for %s", host)
}

// Static is a tunnel whose state is fixed. Used when the tunnel is disabled
// and the control surface is reached directly.
type Static bool

// IsInitialized returns the fixed state.
func (s Static) IsInitialized() bool { return bool(s) }
