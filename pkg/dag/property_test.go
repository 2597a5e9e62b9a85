//go:build property
// +build property

package dag

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildChainGraph ingests vertices where each new vertex points at a subset
// of earlier vertices, the way the ledger ingests events. Such a graph can
// never contain a cycle.
func buildChainGraph(parentChoices []int) *Graph {
	g := New(16)
	for _, choice := range parentChoices {
		v := g.AddVertex()
		if v == 0 {
			continue
		}
		// Derive up to two distinct parents from the generated value.
		p1 := choice % v
		p2 := (choice / 7) % v
		_ = g.AddEdge(v, p1)
		_ = g.AddEdge(v, p2)
	}
	return g
}

// TestBackwardEdgesNeverCycle verifies the ingestion invariant: if every
// edge points from a newer vertex to an older one, HasCycle is false and
// TopologicalSort succeeds, regardless of capacity growth.
func TestBackwardEdgesNeverCycle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("backward-edge graphs are acyclic", prop.ForAll(
		func(parentChoices []int) bool {
			g := buildChainGraph(parentChoices)
			if g.HasCycle() {
				return false
			}
			order, err := g.TopologicalSort()
			return err == nil && len(order) == g.NumVertices()
		},
		gen.SliceOf(gen.IntRange(0, 1<<20)),
	))

	properties.TestingRun(t)
}

// TestTopologicalOrderRespectsEdges verifies that for every edge
// (effect, cause) the effect sorts before the cause.
func TestTopologicalOrderRespectsEdges(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("effect sorts before cause", prop.ForAll(
		func(parentChoices []int) bool {
			g := buildChainGraph(parentChoices)
			order, err := g.TopologicalSort()
			if err != nil {
				return false
			}
			pos := make(map[int]int, len(order))
			for i, v := range order {
				pos[v] = i
			}
			for v := 0; v < g.NumVertices(); v++ {
				neighbors, err := g.Neighbors(v)
				if err != nil {
					return false
				}
				for _, cause := range neighbors {
					if pos[v] >= pos[cause] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1<<20)),
	))

	properties.TestingRun(t)
}

// TestOverlayCheckMatchesCommit verifies that the overlay cycle check
// agrees with actually committing the proposed edges.
func TestOverlayCheckMatchesCommit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("overlay verdict matches committed verdict", prop.ForAll(
		func(parentChoices []int, extra int) bool {
			g := buildChainGraph(parentChoices)
			if g.NumVertices() == 0 {
				return true
			}
			next := g.NumVertices()
			parents := []int{extra % g.NumVertices()}
			predicted := g.HasCycleWithProposedAdditions(next, map[int][]int{next: parents})

			v := g.AddVertex()
			for _, p := range parents {
				if err := g.AddEdge(v, p); err != nil {
					return false
				}
			}
			return predicted == g.HasCycle()
		},
		gen.SliceOf(gen.IntRange(0, 1<<20)),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
