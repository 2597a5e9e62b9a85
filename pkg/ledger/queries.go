package ledger

import (
	"context"
	"sort"

	"github.com/Mindburn-Labs/graphlog/pkg/event"
)

// GetEvent returns a copy of the event record, or ErrNotFound.
func (l *Ledger) GetEvent(ctx context.Context, eventID string) (*event.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, ok := l.indexes.GraphIDFor(eventID); !ok {
		return nil, ErrNotFound
	}
	return l.fetchRecord(ctx, eventID)
}

// ContainsEvent reports whether an event id is committed.
func (l *Ledger) ContainsEvent(eventID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.indexes.GraphIDFor(eventID)
	return ok
}

// EventCount returns the number of committed events.
func (l *Ledger) EventCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexes.NumEvents()
}

// GetEventsByTraceID returns the trace's events in ingestion order.
func (l *Ledger) GetEventsByTraceID(ctx context.Context, traceID string) ([]*event.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchAll(ctx, l.indexes.EventsByTrace(traceID))
}

// GetEventsByType returns the events of one type in ingestion order.
func (l *Ledger) GetEventsByType(ctx context.Context, eventType string) ([]*event.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchAll(ctx, l.indexes.EventsByType(eventType))
}

// GetEventsByService returns a service's events in ingestion order.
func (l *Ledger) GetEventsByService(ctx context.Context, serviceName string) ([]*event.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fetchAll(ctx, l.indexes.EventsByService(serviceName))
}

func (l *Ledger) fetchAll(ctx context.Context, eventIDs []string) ([]*event.Record, error) {
	records := make([]*event.Record, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		rec, err := l.fetchRecord(ctx, eventID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetEventAndAncestry returns every event id reachable in the
// effect→cause direction from eventID, including itself, ordered by
// vertex id (ingestion order). Unknown ids yield an empty sequence.
func (l *Ledger) GetEventAndAncestry(eventID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	graphID, ok := l.indexes.GraphIDFor(eventID)
	if !ok {
		return nil
	}
	reachable, err := l.graph.ReachableFrom(graphID)
	if err != nil {
		return nil
	}
	return l.vertexSetToEventIDs(reachable)
}

// GetEventAndDescendants returns every event id reachable through the
// mirror (cause→effect) adjacency from eventID, including itself,
// ordered by vertex id. Unknown ids yield an empty sequence.
func (l *Ledger) GetEventAndDescendants(eventID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	graphID, ok := l.indexes.GraphIDFor(eventID)
	if !ok {
		return nil
	}

	reachable := map[int]bool{graphID: true}
	stack := []int{graphID}
	children := l.indexes.ChildrenAdjacency()
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[current] {
			if !reachable[child] {
				reachable[child] = true
				stack = append(stack, child)
			}
		}
	}
	return l.vertexSetToEventIDs(reachable)
}

// GetTopologicalOrder returns all event ids in cause-before-effect order,
// a linearization consistent with every causal edge at the call instant.
func (l *Ledger) GetTopologicalOrder() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.topologicalEventIDs()
}

// topologicalEventIDs assumes the caller holds at least a read lease.
func (l *Ledger) topologicalEventIDs() ([]string, error) {
	vertices, err := l.graph.TopologicalSort()
	if err != nil {
		return nil, err
	}
	// The DAG sorts effects first (edges are effect→cause); reverse for
	// cause-before-effect.
	ids := make([]string, 0, len(vertices))
	for i := len(vertices) - 1; i >= 0; i-- {
		if eventID, ok := l.indexes.EventIDFor(vertices[i]); ok {
			ids = append(ids, eventID)
		}
	}
	return ids, nil
}

// GetShortestCausalPath returns the shortest path from startEventID to
// endEventID in the cause→effect graph, inclusive of both endpoints.
// Empty when either id is unknown or no path exists; a single element
// when start equals end.
func (l *Ledger) GetShortestCausalPath(startEventID, endEventID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	startID, ok := l.indexes.GraphIDFor(startEventID)
	if !ok {
		return nil
	}
	endID, ok := l.indexes.GraphIDFor(endEventID)
	if !ok {
		return nil
	}

	path := bfsShortestPath(startID, endID, l.indexes.ChildrenAdjacency())
	if path == nil {
		return nil
	}
	ids := make([]string, 0, len(path))
	for _, v := range path {
		if eventID, ok := l.indexes.EventIDFor(v); ok {
			ids = append(ids, eventID)
		}
	}
	return ids
}

func bfsShortestPath(start, end int, adjacency map[int][]int) []int {
	if start == end {
		return []int{start}
	}

	prev := make(map[int]int)
	visited := map[int]bool{start: true}
	queue := []int{start}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range adjacency[u] {
			if visited[v] {
				continue
			}
			visited[v] = true
			prev[v] = u
			if v == end {
				path := []int{end}
				for current := u; ; current = prev[current] {
					path = append(path, current)
					if current == start {
						break
					}
				}
				// Built backwards from the end.
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, v)
		}
	}
	return nil
}

// GetAllCommonCausalAncestors returns the intersection of the two
// ancestor sets (each event is its own ancestor), ordered by vertex id.
// Empty when either event is missing.
func (l *Ledger) GetAllCommonCausalAncestors(eventID1, eventID2 string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	common := l.commonAncestorVertices(eventID1, eventID2)
	if common == nil {
		return nil
	}
	return l.vertexSetToEventIDs(common)
}

// GetNearestCommonCausalAncestors returns the common ancestors that are
// not themselves ancestors of any other common ancestor.
func (l *Ledger) GetNearestCommonCausalAncestors(eventID1, eventID2 string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	common := l.commonAncestorVertices(eventID1, eventID2)
	if common == nil {
		return nil
	}
	if len(common) == 1 {
		return l.vertexSetToEventIDs(common)
	}

	nearest := make(map[int]bool, len(common))
	for candidate := range common {
		isNearest := true
		for other := range common {
			if other == candidate {
				continue
			}
			// candidate is not nearest if some other common ancestor
			// descends from it, i.e. candidate is in other's ancestry.
			otherAncestors, err := l.graph.ReachableFrom(other)
			if err != nil {
				return nil
			}
			if otherAncestors[candidate] {
				isNearest = false
				break
			}
		}
		if isNearest {
			nearest[candidate] = true
		}
	}
	return l.vertexSetToEventIDs(nearest)
}

func (l *Ledger) commonAncestorVertices(eventID1, eventID2 string) map[int]bool {
	graphID1, ok := l.indexes.GraphIDFor(eventID1)
	if !ok {
		return nil
	}
	graphID2, ok := l.indexes.GraphIDFor(eventID2)
	if !ok {
		return nil
	}

	ancestors1, err := l.graph.ReachableFrom(graphID1)
	if err != nil {
		return nil
	}
	ancestors2, err := l.graph.ReachableFrom(graphID2)
	if err != nil {
		return nil
	}

	common := make(map[int]bool)
	for v := range ancestors1 {
		if ancestors2[v] {
			common[v] = true
		}
	}
	if len(common) == 0 {
		return nil
	}
	return common
}

func (l *Ledger) vertexSetToEventIDs(vertices map[int]bool) []string {
	sorted := make([]int, 0, len(vertices))
	for v := range vertices {
		sorted = append(sorted, v)
	}
	sort.Ints(sorted)

	ids := make([]string, 0, len(sorted))
	for _, v := range sorted {
		if eventID, ok := l.indexes.EventIDFor(v); ok {
			ids = append(ids, eventID)
		}
	}
	return ids
}

// GetCurrentStateForEntity folds all of the entity's events, in causal
// order, into its current state.
func (l *Ledger) GetCurrentStateForEntity(ctx context.Context, serviceName string) (map[string]any, error) {
	return l.projectEntity(ctx, serviceName, "")
}

// GetEntityStateUpToEvent folds the entity's events truncated after the
// first occurrence of upToEventID in the topological stream. An absent
// upToEventID yields the empty mapping.
func (l *Ledger) GetEntityStateUpToEvent(ctx context.Context, serviceName, upToEventID string) (map[string]any, error) {
	if upToEventID == "" {
		return map[string]any{}, nil
	}
	return l.projectEntity(ctx, serviceName, upToEventID)
}

func (l *Ledger) projectEntity(ctx context.Context, serviceName, upToEventID string) (map[string]any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	topo, err := l.topologicalEventIDs()
	if err != nil {
		return nil, err
	}

	if upToEventID != "" {
		stop := -1
		for i, eventID := range topo {
			if eventID == upToEventID {
				stop = i
				break
			}
		}
		if stop == -1 {
			return map[string]any{}, nil
		}
		topo = topo[:stop+1]
	}

	entityIDs := make(map[string]bool)
	for _, eventID := range l.indexes.EventsByService(serviceName) {
		entityIDs[eventID] = true
	}

	events := make([]*event.Record, 0, len(entityIDs))
	for _, eventID := range topo {
		if !entityIDs[eventID] {
			continue
		}
		rec, err := l.fetchRecord(ctx, eventID)
		if err != nil {
			return nil, err
		}
		events = append(events, rec)
	}
	return l.project.Project(events), nil
}

// CompareCausality classifies the relationship between two committed
// events from their vector clocks: CAUSES, CAUSED_BY, CONCURRENT,
// IDENTICAL, or UNDEFINED when an event or clock is missing.
func (l *Ledger) CompareCausality(ctx context.Context, eventID1, eventID2 string) event.CausalRelationship {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec1, err := l.fetchIfKnown(ctx, eventID1)
	if err != nil {
		return event.Undefined
	}
	rec2, err := l.fetchIfKnown(ctx, eventID2)
	if err != nil {
		return event.Undefined
	}
	return rec1.Relationship(rec2)
}

func (l *Ledger) fetchIfKnown(ctx context.Context, eventID string) (*event.Record, error) {
	if _, ok := l.indexes.GraphIDFor(eventID); !ok {
		return nil, ErrNotFound
	}
	return l.fetchRecord(ctx, eventID)
}

// GetGraphIDForEventID exposes the event→vertex mapping for the
// graph-DTO collaborator.
func (l *Ledger) GetGraphIDForEventID(eventID string) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexes.GraphIDFor(eventID)
}

// GetEventIDForGraphID exposes the vertex→event mapping.
func (l *Ledger) GetEventIDForGraphID(graphID int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexes.EventIDFor(graphID)
}

// GetChildrenGraphIDs returns the direct effects of a vertex, for edge
// enumeration.
func (l *Ledger) GetChildrenGraphIDs(graphID int) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.indexes.ChildrenOf(graphID)
}
