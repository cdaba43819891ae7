// Package msg defines the transport-level tea.Msg types exchanged between the
// push stream and the app. It has no upstream imports (client, model) to
// avoid import cycles.
package msg

// -- Stream lifecycle --

// StreamConnected when the push stream is established.
type StreamConnected struct {
	URL string
}

// StreamFrame carries one raw frame payload from the push stream.
type StreamFrame struct {
	Data []byte
}

// StreamDisconnected when the push stream drops or is closed.
// Err is nil for an intentional close.
type StreamDisconnected struct {
	Err error
}

// StreamReconnecting before each reconnect attempt.
type StreamReconnecting struct {
	Attempt int
	Max     int
}

// StreamAuthFailed when the stream endpoint answers 401/403.
type StreamAuthFailed struct{}

// -- UI events --

// TickMsg for periodic timer updates.
type TickMsg struct{}
