package led

// Controller drives binary status LEDs by name.
// Implementations handle board-specific LED naming.
type Controller interface {
	// Set turns the named LED on or off.
	Set(name string, on bool) error

	// Available returns the LED names this controller can drive.
	Available() []string
}
