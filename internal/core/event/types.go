package event

// Session-level events. Grid events live with the grid package.

// IntentRejected reports an input intent the session could not apply.
type IntentRejected struct {
	Grid   string
	Intent string
	Reason string
}

// TickCompleted is emitted once per runner tick after intents are drained.
type TickCompleted struct {
	Tick     uint64
	Applied  int
	Rejected int
}
