package sink

// Status reports whether a sink currently holds an open stream.
type Status int

const (
	Disconnected Status = iota
	Connected
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Sink defines the record destination used by the bridge.
type Sink interface {
	// Connect opens the destination for name, replacing any open one.
	Connect(name string)
	// Disconnect flushes and closes the destination.
	Disconnect()
	// Append writes one record off the caller's goroutine and then calls
	// onComplete exactly once.
	Append(typeTag, topic, payload string, onComplete func())
	Status() Status
}
