// Package network observes the WiFi link and implements the join step of
// bootstrap. Association itself is done by the system's WiFi manager
// (wpa_supplicant, NetworkManager or a provisioning portal).
package network

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// InterfaceFunc looks up an interface by name. Replaced in tests.
type InterfaceFunc func(name string) (Interface, error)

// Interface is the part of net.Interface the probe needs.
type Interface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type sysInterface struct{ *net.Interface }

func (s sysInterface) Flags() net.Flags { return s.Interface.Flags }

// SystemInterfaces resolves interfaces through the net package.
func SystemInterfaces(name string) (Interface, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return sysInterface{iface}, nil
}

// Link probes one network interface.
type Link struct {
	name   string
	lookup InterfaceFunc
}

// NewLink creates a probe for the named interface.
func NewLink(name string, lookup InterfaceFunc) *Link {
	if lookup == nil {
		lookup = SystemInterfaces
	}
	return &Link{name: name, lookup: lookup}
}

// Name returns the interface name.
func (l *Link) Name() string { return l.name }

// LinkUp reports whether the interface is up, running and has a
// non-link-local unicast address.
func (l *Link) LinkUp() bool {
	iface, err := l.lookup(l.name)
	if err != nil {
		return false
	}
	flags := iface.Flags()
	if flags&net.FlagUp == 0 || flags&net.FlagRunning == 0 {
		return false
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return false
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.IsGlobalUnicast() && !ipNet.IP.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}

// Joiner blocks until the link is associated.
type Joiner struct {
	link   *Link
	poll   time.Duration
	logger *slog.Logger
}

// NewJoiner creates the join step for link, checking every poll.
func NewJoiner(link *Link, poll time.Duration, logger *slog.Logger) *Joiner {
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Joiner{link: link, poll: poll, logger: logger}
}

// AutoConnect waits until the link is up. label identifies the device to a
// provisioning portal and is only logged here. It returns early only when
// ctx is cancelled.
func (j *Joiner) AutoConnect(ctx context.Context, label string) error {
	if j.link.LinkUp() {
		j.logger.Info("Network already joined", "interface", j.link.Name(), "label", label)
		return nil
	}

	j.logger.Info("Waiting for network", "interface", j.link.Name(), "label", label)
	ticker := time.NewTicker(j.poll)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("network join on %s interrupted: %w", j.link.Name(), ctx.Err())
		case <-ticker.C:
			if j.link.LinkUp() {
				j.logger.Info("Network joined", "interface", j.link.Name(), "waited", time.Since(start).Round(time.Millisecond))
				return nil
			}
		}
	}
}
