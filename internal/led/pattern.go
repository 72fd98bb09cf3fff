package led

// Connectivity is the status classification rendered on the status LEDs.
type Connectivity int

// Connectivity states.
const (
	// Offline means the WiFi link is down.
	Offline Connectivity = iota
	// Connecting means the link is up but the tunnel is not initialized.
	Connecting
	// Healthy means link and tunnel are up.
	Healthy
	// Halted means bootstrap hit a fatal configuration error.
	Halted
)

func (c Connectivity) String() string {
	switch c {
	case Offline:
		return "offline"
	case Connecting:
		return "connecting"
	case Healthy:
		return "healthy"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// States lists every Connectivity value.
var States = []Connectivity{Offline, Connecting, Healthy, Halted}

// Classify maps the two observed booleans to a state.
func Classify(linkUp, tunnelUp bool) Connectivity {
	switch {
	case !linkUp:
		return Offline
	case !tunnelUp:
		return Connecting
	default:
		return Healthy
	}
}

// Lights is the desired output of the two status LEDs.
type Lights struct {
	Ready bool
	Fault bool
}

// Pattern returns the LED output for state at the given blink phase.
//
//	offline     both LEDs blink together
//	connecting  ready solid, fault blinks
//	healthy     ready solid, fault off
//	halted      ready off, fault solid
func Pattern(state Connectivity, phase bool) Lights {
	switch state {
	case Offline:
		return Lights{Ready: phase, Fault: phase}
	case Connecting:
		return Lights{Ready: true, Fault: phase}
	case Healthy:
		return Lights{Ready: true, Fault: false}
	default:
		return Lights{Ready: false, Fault: true}
	}
}
