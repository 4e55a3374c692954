package ws

import "sync/atomic"

// ConnState is the lifecycle state of a managed WebSocket connection.
type ConnState int32

// Connection lifecycle states.
const (
	// StateDisconnected means no connection attempt has been made yet.
	StateDisconnected ConnState = iota
	// StateConnecting means a dial is in progress.
	StateConnecting
	// StateAuthenticating means the auth frames are being exchanged.
	StateAuthenticating
	// StateSubscribed means the connection is up and topics are subscribed.
	StateSubscribed
	// StateReconnecting means a replacement connection is being established.
	StateReconnecting
	// StateClosed means the manager has been closed for good.
	StateClosed
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	return [...]string{
		"disconnected",
		"connecting",
		"authenticating",
		"subscribed",
		"reconnecting",
		"closed",
	}[s]
}

// state provides atomic access to a ConnState value.
type state struct {
	v atomic.Int32
}

func (s *state) Load() ConnState { return ConnState(s.v.Load()) }

func (s *state) Store(next ConnState) { s.v.Store(int32(next)) }

func (s *state) CompareAndSwap(old, next ConnState) bool {
	return s.v.CompareAndSwap(int32(old), int32(next))
}
