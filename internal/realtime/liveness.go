package realtime

import "time"

// Default heartbeat timing.
const (
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultHeartbeatTimeout  = 25 * time.Second
)

// LivenessState is the heartbeat state of one connection.
type LivenessState int

const (
	// Connected means a liveness response arrived since the last ping.
	Connected LivenessState = iota
	// AwaitingPong means a ping was sent and no response has arrived yet.
	AwaitingPong
	// Disconnected is terminal: the peer stayed silent past the timeout.
	Disconnected
)

func (s LivenessState) String() string {
	switch s {
	case Connected:
		return "connected"
	case AwaitingPong:
		return "awaiting_pong"
	case Disconnected:
		return "disconnected"
	}
	return "unknown"
}

// Liveness tracks whether the peer of a connection is still answering. It is
// driven by the connection loop and is not safe for concurrent use.
type Liveness struct {
	timeout  time.Duration
	lastSeen time.Time
	state    LivenessState
}

// NewLiveness starts tracking at now in the Connected state.
func NewLiveness(now time.Time, timeout time.Duration) *Liveness {
	if timeout <= 0 {
		timeout = DefaultHeartbeatTimeout
	}
	return &Liveness{timeout: timeout, lastSeen: now, state: Connected}
}

// State reports the current state.
func (l *Liveness) State() LivenessState {
	return l.state
}

// Observe records a liveness response received at now.
func (l *Liveness) Observe(now time.Time) {
	if l.state == Disconnected {
		return
	}
	l.lastSeen = now
	l.state = Connected
}

// Tick is called on every heartbeat interval. It reports whether a ping
// should be sent; false means the connection is now Disconnected.
func (l *Liveness) Tick(now time.Time) bool {
	if l.state == Disconnected {
		return false
	}
	if now.Sub(l.lastSeen) > l.timeout {
		l.state = Disconnected
		return false
	}
	l.state = AwaitingPong
	return true
}
