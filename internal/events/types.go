package events

// Event type constants for kelindar/event.
const (
	TypeColorChanged uint32 = iota + 1
	TypeTransitionStarted
	TypeTransitionFinished
	TypeConnectivityChanged
	TypeBadRequest
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ColorChangedEvent is published when a SetColor command is accepted.
type ColorChangedEvent struct {
	Color     string `json:"color" example:"ff00aa" doc:"New color"`
	Previous  string `json:"previous" example:"000000" doc:"Color before the update"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ColorChangedEvent.
func (e ColorChangedEvent) Type() uint32 { return TypeColorChanged }

// TransitionStartedEvent is published when a transition task is spawned.
type TransitionStartedEvent struct {
	Color     string `json:"color"`
	Pixels    int    `json:"pixels"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for TransitionStartedEvent.
func (e TransitionStartedEvent) Type() uint32 { return TypeTransitionStarted }

// TransitionFinishedEvent is published when a transition task exits.
// Completed is false when a newer command superseded it.
type TransitionFinishedEvent struct {
	Color     string `json:"color"`
	Completed bool   `json:"completed"`
	Pixels    int    `json:"pixels" doc:"Pixels written before exit"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for TransitionFinishedEvent.
func (e TransitionFinishedEvent) Type() uint32 { return TypeTransitionFinished }

// ConnectivityChangedEvent is published by the status indicator when the
// link/tunnel classification changes.
type ConnectivityChangedEvent struct {
	State     string `json:"state" example:"healthy" doc:"offline, connecting, healthy or halted"`
	Previous  string `json:"previous"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ConnectivityChangedEvent.
func (e ConnectivityChangedEvent) Type() uint32 { return TypeConnectivityChanged }

// BadRequestEvent is published when a command is rejected.
type BadRequestEvent struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for BadRequestEvent.
func (e BadRequestEvent) Type() uint32 { return TypeBadRequest }
