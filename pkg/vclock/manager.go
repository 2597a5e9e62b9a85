package vclock

import (
	"fmt"
	"sort"
	"sync"
)

// Manager owns the local node's vector clock and tracks the last-seen
// clock for every node observed, including self. It is safe for concurrent
// use.
type Manager struct {
	mu          sync.Mutex
	localNodeID string
	local       *Clock
	nodeClocks  map[string]*Clock
}

// NewManager creates a manager for the given local node. The local clock
// starts at one for the local node, mirroring process start as the first
// local observation.
func NewManager(localNodeID string) (*Manager, error) {
	if localNodeID == "" {
		return nil, fmt.Errorf("vclock: local node id cannot be empty")
	}
	m := &Manager{
		localNodeID: localNodeID,
		local:       New(),
		nodeClocks:  make(map[string]*Clock),
	}
	if _, err := m.local.Tick(localNodeID); err != nil {
		return nil, err
	}
	m.nodeClocks[localNodeID] = m.local.Copy()
	return m, nil
}

// LocalNodeID returns the node id this manager stamps for.
func (m *Manager) LocalNodeID() string { return m.localNodeID }

// Stamp produces the clock for a new locally created event: a copy of the
// local clock merged with every parent clock, then ticked for the local
// node. The merged-and-ticked clock is folded back into the local clock.
func (m *Manager) Stamp(parentClocks []*Clock) *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamped := m.local.Copy()
	for _, pc := range parentClocks {
		stamped.Merge(pc)
	}
	stamped.Tick(m.localNodeID)

	m.local.Merge(stamped)
	m.nodeClocks[m.localNodeID] = m.local.Copy()
	return stamped
}

// Receive applies a remote event's clock: merge-and-tick on the local
// clock and record the remote node's last-seen clock. There is no
// transport; this is the single entry point a future peer link would call.
func (m *Manager) Receive(remoteNodeID string, remoteClock *Clock) error {
	if remoteNodeID == "" {
		return fmt.Errorf("vclock: remote node id cannot be empty")
	}
	if remoteClock == nil {
		return fmt.Errorf("vclock: cannot receive a nil clock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.local.MergeAndTick(remoteClock, m.localNodeID); err != nil {
		return err
	}
	m.nodeClocks[m.localNodeID] = m.local.Copy()
	m.nodeClocks[remoteNodeID] = remoteClock.Copy()
	return nil
}

// Observe merges a replayed event's clock into the local clock without
// ticking. Used on startup so that clocks issued after a restart dominate
// everything already in the log.
func (m *Manager) Observe(nodeID string, clock *Clock) {
	if clock == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.local.Merge(clock)
	m.nodeClocks[m.localNodeID] = m.local.Copy()
	if nodeID != "" && nodeID != m.localNodeID {
		last, ok := m.nodeClocks[nodeID]
		if !ok {
			m.nodeClocks[nodeID] = clock.Copy()
		} else {
			last.Merge(clock)
		}
	}
}

// CurrentClock returns a copy of the local clock.
func (m *Manager) CurrentClock() *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local.Copy()
}

// NodeClock returns a copy of the last-seen clock for nodeID, or an empty
// clock if the node is unknown.
func (m *Manager) NodeClock(nodeID string) *Clock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.nodeClocks[nodeID]; ok {
		return c.Copy()
	}
	return New()
}

// KnownNodes returns the sorted set of node ids observed so far.
func (m *Manager) KnownNodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	nodes := make([]string, 0, len(m.nodeClocks))
	for node := range m.nodeClocks {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// CanDeliver reports whether every causal parent of an event has already
// been delivered. Useful for causal message delivery on top of the ledger.
func (m *Manager) CanDeliver(parentEventIDs []string, delivered func(eventID string) bool) bool {
	for _, parentID := range parentEventIDs {
		if !delivered(parentID) {
			return false
		}
	}
	return true
}

// Reset clears all clock state and reinitializes, for tests.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local = New()
	m.local.Tick(m.localNodeID)
	m.nodeClocks = map[string]*Clock{m.localNodeID: m.local.Copy()}
}

// DebugState returns a snapshot of the manager's state.
func (m *Manager) DebugState() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	clocks := make(map[string]map[string]uint64, len(m.nodeClocks))
	for node, c := range m.nodeClocks {
		clocks[node] = c.Snapshot()
	}
	return map[string]any{
		"localNodeId": m.localNodeID,
		"localClock":  m.local.Snapshot(),
		"knownNodes":  len(m.nodeClocks),
		"nodeClocks":  clocks,
	}
}

func (m *Manager) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("VectorClockManager{localNodeId=%q, localClock=%s, knownNodes=%d}",
		m.localNodeID, m.local, len(m.nodeClocks))
}
