package led

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// outputLine is the part of *gpiod.Line the controller drives.
type outputLine interface {
	SetValue(value int) error
	Close() error
}

// GPIO implements Controller with LEDs wired to GPIO character device lines.
type GPIO struct {
	mu    sync.Mutex
	lines map[string]outputLine
	chip  *gpiod.Chip
}

// ParseLines parses "green=17,red=27" into LED name to line offset.
func ParseLines(s string) (map[string]int, error) {
	lines := make(map[string]int)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, offset, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid GPIO line %q, want name=offset", item)
		}
		n, err := strconv.Atoi(strings.TrimSpace(offset))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid GPIO offset in %q", item)
		}
		lines[strings.TrimSpace(name)] = n
	}
	return lines, nil
}

// NewGPIO opens chip (e.g. "gpiochip0") and requests every line as an output,
// initially off.
func NewGPIO(chip string, lines map[string]int, logger *slog.Logger) (*GPIO, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer("lampnode"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", chip, err)
	}

	g, err := newGPIO(lines, func(offset int) (outputLine, error) {
		return c.RequestLine(offset, gpiod.AsOutput(0))
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	g.chip = c

	logger.Info("Using GPIO LED controller", "chip", chip, "leds", len(lines))
	return g, nil
}

func newGPIO(lines map[string]int, request func(offset int) (outputLine, error)) (*GPIO, error) {
	g := &GPIO{lines: make(map[string]outputLine, len(lines))}
	for name, offset := range lines {
		line, err := request(offset)
		if err != nil {
			_ = g.Close()
			return nil, fmt.Errorf("failed to request line %d for LED %q: %w", offset, name, err)
		}
		g.lines[name] = line
	}
	return g, nil
}

// Set drives the named line high or low.
func (g *GPIO) Set(name string, on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	line, ok := g.lines[name]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", name)
	}
	value := 0
	if on {
		value = 1
	}
	return line.SetValue(value)
}

// Available returns the configured LED names, sorted.
func (g *GPIO) Available() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.lines))
	for name := range g.lines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every line and the chip.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for _, line := range g.lines {
		errs = append(errs, line.Close())
	}
	g.lines = map[string]outputLine{}
	if g.chip != nil {
		errs = append(errs, g.chip.Close())
		g.chip = nil
	}
	return errors.Join(errs...)
}
