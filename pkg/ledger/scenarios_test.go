package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End-to-end scenarios over the public surface.

func TestLinearChainByAutoParenting(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	a := mustIngest(t, l, "T", "svc", "A", nil)
	b := mustIngest(t, l, "T", "svc", "B", nil)
	c := mustIngest(t, l, "T", "svc", "C", nil)

	recB, err := l.GetEvent(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, recB.CausalParentEventIDs)

	recC, err := l.GetEvent(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, recC.CausalParentEventIDs)

	topo, err := l.GetTopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, topo)

	assert.ElementsMatch(t, []string{a, b, c}, l.GetEventAndAncestry(c))
	assert.ElementsMatch(t, []string{a, b, c}, l.GetEventAndDescendants(a))
	assert.ElementsMatch(t, []string{c}, l.GetEventAndDescendants(c))
}

func TestDiamond(t *testing.T) {
	l := openLedger(t)

	x := mustIngest(t, l, "trace-x", "svc", "X", nil)
	y := mustIngest(t, l, "trace-y", "svc", "Y", nil)
	m := mustIngest(t, l, "trace-m", "svc", "M", nil, x, y)
	z := mustIngest(t, l, "trace-z", "svc", "Z", nil, x, y)

	assert.ElementsMatch(t, []string{x, y}, l.GetAllCommonCausalAncestors(m, z))
	assert.ElementsMatch(t, []string{x, y}, l.GetNearestCommonCausalAncestors(m, z))
	assert.Equal(t, []string{x, m}, l.GetShortestCausalPath(x, m))
}

func TestCycleRejection(t *testing.T) {
	l := openLedger(t)

	a := mustIngest(t, l, "t", "svc", "A", nil)
	b := mustIngest(t, l, "t", "svc", "B", nil, a)
	c := mustIngest(t, l, "t", "svc", "C", nil, b)

	// A parent that does not exist yet fails UnknownParent; a genuine
	// cycle is impossible through the public surface because ids are
	// generated after validation.
	_, err := l.IngestEvent(context.Background(), "t", "svc", "", "", "D", nil,
		[]string{c, "not-yet-existent"})
	assert.ErrorIs(t, err, ErrUnknownParent)

	stats := l.Stats()
	assert.Equal(t, 3, stats.Events)
	assert.Equal(t, uint64(0), stats.CyclesPrevented)
}

func TestCommonAncestorsOnChains(t *testing.T) {
	l := openLedger(t)

	r := mustIngest(t, l, "t", "svc", "R", nil)
	p := mustIngest(t, l, "t", "svc", "P", nil, r)
	q1 := mustIngest(t, l, "t1", "svc", "Q1", nil, p)
	q2 := mustIngest(t, l, "t2", "svc", "Q2", nil, p)

	assert.ElementsMatch(t, []string{r, p}, l.GetAllCommonCausalAncestors(q1, q2))
	assert.Equal(t, []string{p}, l.GetNearestCommonCausalAncestors(q1, q2))
}

func TestNearestCommonAncestorOfSelf(t *testing.T) {
	l := openLedger(t)
	e := mustIngest(t, l, "t", "svc", "E", nil)

	assert.Equal(t, []string{e}, l.GetNearestCommonCausalAncestors(e, e))
	assert.Equal(t, []string{e}, l.GetAllCommonCausalAncestors(e, e))
}

func TestShortestPathBoundaries(t *testing.T) {
	l := openLedger(t)

	a := mustIngest(t, l, "ta", "svc", "A", nil)
	b := mustIngest(t, l, "tb", "svc", "B", nil)

	assert.Equal(t, []string{a}, l.GetShortestCausalPath(a, a))
	assert.Empty(t, l.GetShortestCausalPath(a, b))
	assert.Empty(t, l.GetShortestCausalPath(a, "missing"))
	assert.Empty(t, l.GetShortestCausalPath("missing", a))
}

func TestShortestPathPrefersFewerHops(t *testing.T) {
	l := openLedger(t)

	a := mustIngest(t, l, "t1", "svc", "A", nil)
	b := mustIngest(t, l, "t2", "svc", "B", nil, a)
	c := mustIngest(t, l, "t3", "svc", "C", nil, b)
	d := mustIngest(t, l, "t4", "svc", "D", nil, c, a)

	assert.Equal(t, []string{a, d}, l.GetShortestCausalPath(a, d))
}

func TestAncestryOfUnknownIsEmpty(t *testing.T) {
	l := openLedger(t)
	mustIngest(t, l, "t", "svc", "A", nil)

	assert.Empty(t, l.GetEventAndAncestry("missing"))
	assert.Empty(t, l.GetEventAndDescendants("missing"))
	assert.Empty(t, l.GetAllCommonCausalAncestors("missing", "also-missing"))
}

func TestStateProjectionTimeTravel(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	created := mustIngest(t, l, "T", "USER_ACCOUNT", "USER_CREATED",
		map[string]any{"userId": "u", "username": "a"})
	mustIngest(t, l, "T", "USER_ACCOUNT", "USER_RENAMED",
		map[string]any{"userId": "u", "newUsername": "b"}, created)

	current, err := l.GetCurrentStateForEntity(ctx, "USER_ACCOUNT")
	require.NoError(t, err)
	assert.Equal(t, "u", current["userId"])
	assert.Equal(t, "b", current["username"])
	assert.Equal(t, true, current["isActive"])
	assert.Equal(t, 2, current["version"])

	historical, err := l.GetEntityStateUpToEvent(ctx, "USER_ACCOUNT", created)
	require.NoError(t, err)
	assert.Equal(t, "a", historical["username"])
	assert.Equal(t, 1, historical["version"])

	// Unknown cut-off event yields the empty mapping.
	empty, err := l.GetEntityStateUpToEvent(ctx, "USER_ACCOUNT", "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)

	// Entities with no events project to the empty mapping.
	none, err := l.GetCurrentStateForEntity(ctx, "NO_SUCH_ENTITY")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProjectionFollowsCausalOrderAcrossTraces(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	// Events for one entity spread over two traces, ordered by explicit
	// parents rather than ingestion interleaving.
	added := mustIngest(t, l, "t1", "INVENTORY", "PRODUCT_ADDED",
		map[string]any{"productId": "p1", "stock": float64(1)})
	inc := mustIngest(t, l, "t2", "INVENTORY", "STOCK_INCREMENTED",
		map[string]any{"amount": float64(4)}, added)
	mustIngest(t, l, "t1", "INVENTORY", "STOCK_DECREMENTED",
		map[string]any{"amount": float64(2)}, inc)

	state, err := l.GetCurrentStateForEntity(ctx, "INVENTORY")
	require.NoError(t, err)
	assert.Equal(t, 3, state["stock"])
	assert.Equal(t, 3, state["version"])
}

func TestTopologicalConsistencyInvariant(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	ids := make([]string, 0, 12)
	ids = append(ids, mustIngest(t, l, "t", "svc", "ROOT", nil))
	for i := 0; i < 11; i++ {
		parent := ids[i/2]
		ids = append(ids, mustIngest(t, l, "t", "svc", "NODE", nil, parent))
	}

	topo, err := l.GetTopologicalOrder()
	require.NoError(t, err)
	pos := make(map[string]int, len(topo))
	for i, id := range topo {
		pos[id] = i
	}

	for _, id := range ids {
		rec, err := l.GetEvent(ctx, id)
		require.NoError(t, err)
		for _, parent := range rec.CausalParentEventIDs {
			assert.Less(t, pos[parent], pos[id], "cause must sort before effect")
		}
	}
}

func TestVCGraphAgreement(t *testing.T) {
	l := openLedger(t)
	ctx := context.Background()

	a := mustIngest(t, l, "t", "svc", "A", nil)
	b := mustIngest(t, l, "t", "svc", "B", nil, a)
	c := mustIngest(t, l, "t2", "svc", "C", nil, b)

	for _, pair := range [][2]string{{a, b}, {a, c}, {b, c}} {
		if l.CompareCausality(ctx, pair[0], pair[1]) == "CAUSES" {
			assert.Contains(t, l.GetEventAndDescendants(pair[0]), pair[1])
		}
	}
}
