package tunnel

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// Links creates, addresses and raises the tunnel interface.
type Links interface {
	Ensure(name string) error
	SetAddress(name string, prefix netip.Prefix) error
	AddRoute(name string, dst netip.Prefix) error
	Up(name string) error
}

// NetlinkLinks manages kernel WireGuard links over rtnetlink.
type NetlinkLinks struct{}

// Ensure creates a wireguard link named name unless it already exists.
func (NetlinkLinks) Ensure(name string) error {
	_, err := netlink.LinkByName(name)
	if err == nil {
		return nil
	}
	var notFound netlink.LinkNotFoundError
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	if err := netlink.LinkAdd(&netlink.Wireguard{LinkAttrs: netlink.LinkAttrs{Name: name}}); err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	return nil
}

// SetAddress assigns prefix to the link, replacing an identical address.
func (NetlinkLinks) SetAddress(name string, prefix netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	if err := netlink.AddrReplace(link, &netlink.Addr{IPNet: ipNet(prefix)}); err != nil {
		return fmt.Errorf("failed to assign %s to %s: %w", prefix, name, err)
	}
	return nil
}

// AddRoute routes dst through the link.
func (NetlinkLinks) AddRoute(name string, dst netip.Prefix) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Dst:       ipNet(dst),
		Scope:     netlink.SCOPE_LINK,
	}
	if err := netlink.RouteReplace(route); err != nil {
		return fmt.Errorf("failed to route %s via %s: %w", dst, name, err)
	}
	return nil
}

// Up sets the link administratively up.
func (NetlinkLinks) Up(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", name, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("failed to bring up %s: %w", name, err)
	}
	return nil
}

func ipNet(p netip.Prefix) *net.IPNet {
	return &net.IPNet{
		IP:   net.IP(p.Addr().AsSlice()),
		Mask: net.CIDRMask(p.Bits(), p.Addr().BitLen()),
	}
}
