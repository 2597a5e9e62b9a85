package vclock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	assert.Equal(t, "node-a", m.LocalNodeID())
	assert.Equal(t, uint64(1), m.CurrentClock().Counter("node-a"))
	assert.Equal(t, []string{"node-a"}, m.KnownNodes())
}

func TestNewManagerEmptyNode(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestStampWithoutParents(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	c1 := m.Stamp(nil)
	c2 := m.Stamp(nil)

	assert.Equal(t, uint64(2), c1.Counter("node-a"))
	assert.Equal(t, uint64(3), c2.Counter("node-a"))
	assert.True(t, c1.HappensBefore(c2))
	assert.True(t, c2.Equal(m.CurrentClock()))
}

func TestStampMergesParentClocks(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	parent := FromMap(map[string]uint64{"node-b": 9})
	c := m.Stamp([]*Clock{parent})

	assert.Equal(t, uint64(9), c.Counter("node-b"))
	assert.Equal(t, uint64(2), c.Counter("node-a"))
	assert.True(t, parent.HappensBefore(c))
}

func TestReceive(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	remote := FromMap(map[string]uint64{"node-b": 4})
	require.NoError(t, m.Receive("node-b", remote))

	local := m.CurrentClock()
	assert.Equal(t, uint64(4), local.Counter("node-b"))
	assert.Equal(t, uint64(2), local.Counter("node-a"))
	assert.True(t, m.NodeClock("node-b").Equal(remote))
	assert.Equal(t, []string{"node-a", "node-b"}, m.KnownNodes())
}

func TestReceiveInvalid(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	assert.Error(t, m.Receive("", New()))
	assert.Error(t, m.Receive("node-b", nil))
}

func TestObserveDoesNotTick(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	m.Observe("node-b", FromMap(map[string]uint64{"node-b": 3}))

	local := m.CurrentClock()
	assert.Equal(t, uint64(1), local.Counter("node-a"))
	assert.Equal(t, uint64(3), local.Counter("node-b"))

	// A later stamp dominates everything observed.
	stamped := m.Stamp(nil)
	assert.Equal(t, uint64(2), stamped.Counter("node-a"))
	assert.Equal(t, uint64(3), stamped.Counter("node-b"))
}

func TestNodeClockUnknown(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)
	assert.True(t, m.NodeClock("node-x").IsEmpty())
}

func TestCanDeliver(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	delivered := map[string]bool{"e1": true, "e2": true}
	in := func(id string) bool { return delivered[id] }

	assert.True(t, m.CanDeliver(nil, in))
	assert.True(t, m.CanDeliver([]string{"e1", "e2"}, in))
	assert.False(t, m.CanDeliver([]string{"e1", "e3"}, in))
}

func TestReset(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)
	require.NoError(t, m.Receive("node-b", FromMap(map[string]uint64{"node-b": 2})))

	m.Reset()
	assert.Equal(t, []string{"node-a"}, m.KnownNodes())
	assert.Equal(t, uint64(1), m.CurrentClock().Counter("node-a"))
	assert.Equal(t, uint64(0), m.CurrentClock().Counter("node-b"))
}

func TestDebugState(t *testing.T) {
	m, err := NewManager("node-a")
	require.NoError(t, err)

	state := m.DebugState()
	assert.Equal(t, "node-a", state["localNodeId"])
	assert.Equal(t, 1, state["knownNodes"])
}
