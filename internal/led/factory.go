package led

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// New creates a controller for the named sysfs LEDs.
// Names that are not present under /sys/class/leds are left out; when none
// are present the no-op controller is returned.
func New(logger *slog.Logger, names ...string) Controller {
	return newFromRoot(logger, sysfsLEDPath, names)
}

func newFromRoot(logger *slog.Logger, root string, names []string) Controller {
	logger.Info("Detecting board for LED control", "board_model", detectBoard())

	leds := make(map[string]string)
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			logger.Warn("Status LED not found", "led", name, "path", filepath.Join(root, name))
			continue
		}
		leds[name] = name
	}

	if len(leds) == 0 {
		logger.Info("No status LEDs available, using no-op controller")
		return newNoop(logger)
	}

	logger.Info("Using sysfs LED controller", "leds", len(leds))
	return newSysfs(root, leds)
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	return model
}
