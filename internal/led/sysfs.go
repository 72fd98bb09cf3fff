package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using Linux sysfs LED interface
type sysfs struct {
	root   string
	leds   map[string]string // LED name -> sysfs directory name
	mu     sync.Mutex
	manual map[string]bool // trigger already forced to "none"
}

// newSysfs creates a sysfs controller rooted at root with the given name mapping.
func newSysfs(root string, leds map[string]string) *sysfs {
	return &sysfs{
		root:   root,
		leds:   leds,
		manual: make(map[string]bool),
	}
}

// Set controls an LED's brightness. The kernel trigger is switched to "none"
// on first use so that the brightness write sticks.
func (s *sysfs) Set(name string, on bool) error {
	sysfsName, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", name)
	}

	ledPath := filepath.Join(s.root, sysfsName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.manual[name] {
		if _, err := os.Stat(ledPath); os.IsNotExist(err) {
			return fmt.Errorf("LED %q not found at %s", name, ledPath)
		}
		triggerPath := filepath.Join(ledPath, "trigger")
		if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
			return fmt.Errorf("failed to set LED trigger to none: %w", err)
		}
		s.manual[name] = true
	}

	brightnessValue := "0"
	if on {
		brightnessValue = "1"
	}

	brightnessPath := filepath.Join(ledPath, "brightness")
	if err := os.WriteFile(brightnessPath, []byte(brightnessValue), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}

	return nil
}

// Available returns the configured LED names, sorted.
func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
