package session

// ConnState is a step of a connection attempt.
//
//	Idle → Connecting → Connected → Inspecting → Disconnected
//	                  ↘ ConnectFailed → Disconnected
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateInspecting
	StateConnectFailed
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateInspecting:
		return "inspecting"
	case StateConnectFailed:
		return "connect_failed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ConnectOutcome is what a connect-and-inspect attempt observed.
// Services is only meaningful when Connected is true.
type ConnectOutcome struct {
	Device    DiscoveredDevice
	Connected bool
	Services  []string
	Trace     []ConnState
}

// Final is the last state the attempt reached
func (o ConnectOutcome) Final() ConnState {
	if len(o.Trace) == 0 {
		return StateIdle
	}
	return o.Trace[len(o.Trace)-1]
}
