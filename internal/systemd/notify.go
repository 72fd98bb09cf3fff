// Package systemd reports service readiness and status to the supervisor.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/lampnode/internal/logging"
)

// NotifyFunc sends a state string to the service manager.
type NotifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier wraps sd_notify. Outside of systemd every call is a no-op.
type Notifier struct {
	notify NotifyFunc
	logger logging.Logger
}

// NewNotifier returns a notifier backed by daemon.SdNotify.
func NewNotifier() *Notifier {
	return NewNotifierWith(daemon.SdNotify)
}

// NewNotifierWith returns a notifier using fn.
func NewNotifierWith(fn NotifyFunc) *Notifier {
	return &Notifier{notify: fn, logger: logging.GetLogger("main")}
}

// Ready signals that startup finished.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping signals that shutdown began.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl.
func (n *Notifier) Status(status string) {
	n.send("STATUS=" + status)
}

// Halted reports a fatal startup error while keeping the process alive.
func (n *Notifier) Halted(reason error) {
	n.send("STATUS=halted: " + reason.Error())
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if !sent {
		n.logger.Debug("sd_notify not supported, skipping", "state", state)
	}
}
