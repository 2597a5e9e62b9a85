package event

// CausalRelationship classifies how two events relate under the
// happens-before partial order.
type CausalRelationship string

const (
	// Causes: the first event happens before the second.
	Causes CausalRelationship = "CAUSES"
	// CausedBy: the second event happens before the first.
	CausedBy CausalRelationship = "CAUSED_BY"
	// Concurrent: neither happens before the other.
	Concurrent CausalRelationship = "CONCURRENT"
	// Identical: the vector clocks are equal.
	Identical CausalRelationship = "IDENTICAL"
	// Undefined: one of the events or clocks is missing.
	Undefined CausalRelationship = "UNDEFINED"
)
