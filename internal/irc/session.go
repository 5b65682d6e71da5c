package irc

import "time"

// State is the connection lifecycle phase. Transitions:
// Disconnected → Connecting (dial) → Joining (auth sent, JOIN issued) →
// Active (grace window elapsed), and back to Disconnected on error.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoining
	StateActive
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Session is the per-run mutable protocol state. It is only written by the
// dispatch goroutine; command handlers read it through that same goroutine.
type Session struct {
	Server        string
	Channel       string
	Nick          string
	AdminName     string
	ExitPhrase    string
	CommandPrefix string

	CreatedAt time.Time
	State     State

	// MaxMsgLen stays 0 until the first JOIN frame reveals our hostmask,
	// after which it is strictly positive.
	MaxMsgLen int

	JoinTime    time.Time
	LastPing    time.Time
	LastCommand time.Time
}

// InGrace reports whether chat processing is still suppressed after a
// join, to discard replayed backlog.
func (s *Session) InGrace(now time.Time, grace time.Duration) bool {
	if s.JoinTime.IsZero() {
		return false
	}
	return now.Sub(s.JoinTime) < grace
}
