package led

import "log/slog"

// noop stands in on boards without usable status LEDs. Writes are logged at
// debug so the indicator pattern can still be followed in the logs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, on bool) error {
	n.logger.Debug("Status LED", "led", name, "on", on)
	return nil
}

func (n *noop) Available() []string { return []string{} }
