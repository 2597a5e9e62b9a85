package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/graphlog/pkg/event"
	"github.com/Mindburn-Labs/graphlog/pkg/vclock"
)

// IngestEvent commits a new event. When explicitParentIDs is empty the
// parent set defaults to the latest event on the trace, if any, producing
// a per-trace causal chain.
//
// Commit order under the writer lock: validate → resolve parents →
// overlay cycle check → stamp clock → log append → event-store put →
// vertex + edges + mirror + indexes. A failure before the log append
// allocates no vertex and writes nothing to the log, the store, or the
// indexes; only the cycle-check counters and, once stamping has run, the
// local vector clock may have advanced. A store failure after the log append
// fails the ingestion, but the log keeps the event and restart
// reconstructs it.
func (l *Ledger) IngestEvent(ctx context.Context, traceID, serviceName, serviceVersion, hostname, eventType string,
	payload map[string]any, explicitParentIDs []string) (string, error) {

	start := time.Now()
	eventID, err := l.ingest(ctx, traceID, serviceName, serviceVersion, hostname, eventType, payload, explicitParentIDs)
	if l.obs != nil {
		l.obs.RecordIngest(ctx, eventType, time.Since(start), err)
	}
	return eventID, err
}

func (l *Ledger) ingest(ctx context.Context, traceID, serviceName, serviceVersion, hostname, eventType string,
	payload map[string]any, explicitParentIDs []string) (string, error) {

	traceID = strings.TrimSpace(traceID)
	serviceName = strings.TrimSpace(serviceName)
	eventType = strings.TrimSpace(eventType)
	if traceID == "" {
		return "", fmt.Errorf("%w: trace id cannot be empty", ErrInvalidArgument)
	}
	if serviceName == "" {
		return "", fmt.Errorf("%w: service name cannot be empty", ErrInvalidArgument)
	}
	if eventType == "" {
		return "", fmt.Errorf("%w: event type cannot be empty", ErrInvalidArgument)
	}
	if serviceVersion == "" {
		serviceVersion = event.DefaultServiceVersion
	}
	if hostname == "" {
		hostname = event.DefaultHostname
	}
	if payload == nil {
		payload = map[string]any{}
	}

	if l.schemas != nil {
		if err := l.schemas.Validate(eventType, payload); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", ErrClosed
	}

	parentIDs, err := l.resolveParents(traceID, explicitParentIDs)
	if err != nil {
		return "", err
	}

	parentGraphIDs := make([]int, len(parentIDs))
	for i, parentID := range parentIDs {
		graphID, ok := l.indexes.GraphIDFor(parentID)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
		}
		parentGraphIDs[i] = graphID
	}

	// Probe the commit against an overlay before touching anything. The
	// proposed vertex id is the one AddVertex will hand out.
	l.totalCycleChecks++
	proposed := l.graph.NumVertices()
	if l.graph.HasCycleWithProposedAdditions(proposed, map[int][]int{proposed: parentGraphIDs}) {
		l.totalCyclesPrevented++
		return "", fmt.Errorf("%w: ingesting %s for trace %s with parents %v would close a cycle",
			ErrCausalLoop, eventType, traceID, parentIDs)
	}

	parentClocks := make([]*vclock.Clock, 0, len(parentIDs))
	for _, parentID := range parentIDs {
		parent, err := l.fetchRecord(ctx, parentID)
		if err != nil {
			return "", err
		}
		parentClocks = append(parentClocks, parent.VectorClock)
	}

	rec := event.New(l.nodeID, traceID, serviceName, serviceVersion, hostname, eventType,
		payload, parentIDs, l.clocks.Stamp(parentClocks))

	line, err := rec.MarshalLogLine()
	if err != nil {
		return "", &PersistenceError{Op: "event serialization", Err: err}
	}
	if err := l.log.Append(line); err != nil {
		return "", &PersistenceError{Op: "log append", Err: err}
	}
	if err := l.store.Put(ctx, rec.EventID, line); err != nil {
		// The log already holds the event; restart reconstructs the store.
		return "", &PersistenceError{Op: "event store put", Err: err}
	}

	vertex := l.graph.AddVertex()
	for _, parentGraphID := range parentGraphIDs {
		if err := l.graph.AddEdge(vertex, parentGraphID); err != nil {
			return "", fmt.Errorf("ledger: add edge %d→%d: %w", vertex, parentGraphID, err)
		}
		l.indexes.AddChild(parentGraphID, vertex)
	}
	if err := l.indexes.RegisterEvent(rec.EventID, vertex, serviceName, eventType, traceID); err != nil {
		return "", fmt.Errorf("ledger: register event: %w", err)
	}

	l.totalEventsIngested++
	return rec.EventID, nil
}

// resolveParents returns the final parent set: explicit ids (trimmed,
// de-duplicated, order preserved) when given, else the per-trace head.
func (l *Ledger) resolveParents(traceID string, explicitParentIDs []string) ([]string, error) {
	if len(explicitParentIDs) == 0 {
		if head, ok := l.indexes.LatestByTrace(traceID); ok {
			return []string{head}, nil
		}
		return nil, nil
	}

	seen := make(map[string]bool, len(explicitParentIDs))
	parents := make([]string, 0, len(explicitParentIDs))
	for _, raw := range explicitParentIDs {
		parentID := strings.TrimSpace(raw)
		if parentID == "" {
			return nil, fmt.Errorf("%w: parent id cannot be empty", ErrInvalidArgument)
		}
		if seen[parentID] {
			continue
		}
		seen[parentID] = true
		parents = append(parents, parentID)
	}
	return parents, nil
}
