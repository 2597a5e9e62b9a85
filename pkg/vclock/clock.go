// Package vclock implements vector clocks for establishing happens-before
// relationships between events, and a manager that owns the local node's
// clock plus the last-seen clocks of known peers.
package vclock

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Clock maps node ids to monotonically increasing counters. Missing nodes
// are treated as counter zero. Clock is not safe for concurrent use; the
// Manager (or the ledger's lock) serializes access.
type Clock struct {
	counters map[string]uint64
}

// New returns an empty clock.
func New() *Clock {
	return &Clock{counters: make(map[string]uint64)}
}

// FromMap builds a clock from a node→counter mapping. The map is copied.
func FromMap(m map[string]uint64) *Clock {
	c := New()
	for node, n := range m {
		if n > 0 {
			c.counters[node] = n
		}
	}
	return c
}

// Copy returns an independent copy of the clock.
func (c *Clock) Copy() *Clock {
	if c == nil {
		return New()
	}
	return FromMap(c.counters)
}

// Tick increments the counter for nodeID, creating the entry at 1 if
// absent, and returns the new value.
func (c *Clock) Tick(nodeID string) (uint64, error) {
	if nodeID == "" {
		return 0, fmt.Errorf("vclock: node id cannot be empty")
	}
	c.counters[nodeID]++
	return c.counters[nodeID], nil
}

// Merge sets this[node] = max(this[node], other[node]) for every node
// present in either clock.
func (c *Clock) Merge(other *Clock) {
	if other == nil {
		return
	}
	for node, n := range other.counters {
		if n > c.counters[node] {
			c.counters[node] = n
		}
	}
}

// MergeAndTick merges the other clock and then ticks the local node. This
// is the receive-side rule for vector clocks.
func (c *Clock) MergeAndTick(other *Clock, localNode string) error {
	c.Merge(other)
	_, err := c.Tick(localNode)
	return err
}

// Counter returns the counter for nodeID, zero if absent.
func (c *Clock) Counter(nodeID string) uint64 {
	if c == nil {
		return 0
	}
	return c.counters[nodeID]
}

// HappensBefore reports whether c happens before other: c[n] <= other[n]
// for every node in either clock, and strictly less for at least one.
func (c *Clock) HappensBefore(other *Clock) bool {
	if other == nil {
		return false
	}
	strictlySmaller := false
	for node := range c.counters {
		if c.counters[node] > other.counters[node] {
			return false
		}
		if c.counters[node] < other.counters[node] {
			strictlySmaller = true
		}
	}
	for node, n := range other.counters {
		if _, seen := c.counters[node]; seen {
			continue
		}
		if n > 0 {
			strictlySmaller = true
		}
	}
	return strictlySmaller
}

// ConcurrentWith reports whether neither clock happens before the other.
func (c *Clock) ConcurrentWith(other *Clock) bool {
	return other != nil && !c.HappensBefore(other) && !other.HappensBefore(c)
}

// Equal reports mapping equality over the union of keys with implicit
// zeros.
func (c *Clock) Equal(other *Clock) bool {
	if other == nil {
		return c.IsEmpty()
	}
	for node, n := range c.counters {
		if other.counters[node] != n {
			return false
		}
	}
	for node, n := range other.counters {
		if c.counters[node] != n {
			return false
		}
	}
	return true
}

// Nodes returns the tracked node ids in sorted order.
func (c *Clock) Nodes() []string {
	if c == nil {
		return nil
	}
	nodes := make([]string, 0, len(c.counters))
	for node := range c.counters {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// IsEmpty reports whether no node is tracked.
func (c *Clock) IsEmpty() bool {
	return c == nil || len(c.counters) == 0
}

// Len returns the number of tracked nodes.
func (c *Clock) Len() int {
	if c == nil {
		return 0
	}
	return len(c.counters)
}

// Snapshot returns a copy of the node→counter mapping.
func (c *Clock) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(c.counters))
	for node, n := range c.counters {
		out[node] = n
	}
	return out
}

// MarshalJSON encodes the clock as a flat node→counter object.
func (c *Clock) MarshalJSON() ([]byte, error) {
	if c == nil || c.counters == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.counters)
}

// UnmarshalJSON decodes a flat node→counter object.
func (c *Clock) UnmarshalJSON(data []byte) error {
	m := make(map[string]uint64)
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("vclock: decode clock: %w", err)
	}
	c.counters = m
	return nil
}

func (c *Clock) String() string {
	nodes := c.Nodes()
	out := "VectorClock{"
	for i, node := range nodes {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", node, c.counters[node])
	}
	return out + "}"
}
