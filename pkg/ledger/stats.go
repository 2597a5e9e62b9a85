package ledger

import (
	"fmt"
)

// Stats is a snapshot of the ledger's counters.
type Stats struct {
	Events          int
	Ingested        uint64
	CycleChecks     uint64
	CyclesPrevented uint64
	Vertices        int
	Edges           int
	Capacity        int
	Density         float64
	StartupPath     string
	LogFilePath     string
	LocalClock      string
}

// Stats returns the current counters.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		Events:          l.indexes.NumEvents(),
		Ingested:        l.totalEventsIngested,
		CycleChecks:     l.totalCycleChecks,
		CyclesPrevented: l.totalCyclesPrevented,
		Vertices:        l.graph.NumVertices(),
		Edges:           l.graph.NumEdges(),
		Capacity:        l.graph.Capacity(),
		Density:         l.graph.Density(),
		StartupPath:     l.startupPath,
		LogFilePath:     l.log.Path(),
		LocalClock:      l.clocks.CurrentClock().String(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"CausalLedger[events=%d, ingested=%d, cycleChecks=%d, cyclesPrevented=%d, "+
			"graph=Graph[vertices=%d, edges=%d, capacity=%d, density=%.3f], logFile='%s', clock=%s]",
		s.Events, s.Ingested, s.CycleChecks, s.CyclesPrevented,
		s.Vertices, s.Edges, s.Capacity, s.Density, s.LogFilePath, s.LocalClock)
}
