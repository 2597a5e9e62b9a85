package ledger

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/graphlog/pkg/event"
	"github.com/Mindburn-Labs/graphlog/pkg/index"
)

// load restores in-memory state on startup. Warm path: every index
// snapshot parses, so only edges are replayed from the log. Cold path:
// the log is the sole input and everything is rebuilt from it.
func (l *Ledger) load(ctx context.Context) error {
	set, err := l.persist.LoadAll()
	if err == nil {
		if warmErr := l.warmStart(ctx, set); warmErr == nil {
			l.startupPath = "warm"
			return nil
		} else if _, fatal := warmErr.(*PersistenceError); fatal {
			return warmErr
		} else {
			l.logger.Warn("warm start failed, falling back to cold rebuild", "error", warmErr)
		}
	} else {
		l.logger.Info("index snapshots unavailable, rebuilding from log", "reason", err)
	}

	if err := l.coldStart(ctx); err != nil {
		return err
	}
	l.startupPath = "cold"
	return nil
}

// warmStart adopts the loaded index set, sizes the DAG to the loaded
// vertex mapping, and streams the log once to reconstruct edges only.
func (l *Ledger) warmStart(ctx context.Context, loaded *index.Set) error {
	l.indexes = loaded
	l.graph.Clear()
	l.graph.EnsureVertices(loaded.MaxGraphID() + 1)

	err := l.log.Replay(func(lineNo int, line []byte) error {
		rec, err := event.ParseLogLine(line)
		if err != nil {
			l.logger.Warn("skipping undecodable log line", "line", lineNo, "error", err)
			return nil
		}

		vertex, ok := l.indexes.GraphIDFor(rec.EventID)
		if !ok {
			return fmt.Errorf("ledger: event %s from log line %d missing from loaded indexes", rec.EventID, lineNo)
		}
		for _, parentID := range rec.CausalParentEventIDs {
			parentVertex, ok := l.indexes.GraphIDFor(parentID)
			if !ok {
				return fmt.Errorf("ledger: parent %s of event %s missing from loaded indexes", parentID, rec.EventID)
			}
			if err := l.graph.AddEdge(vertex, parentVertex); err != nil {
				return fmt.Errorf("ledger: replay edge %d→%d: %w", vertex, parentVertex, err)
			}
		}
		l.clocks.Observe(rec.NodeID, rec.VectorClock)
		return nil
	})
	if err != nil {
		return err
	}

	// Probe the event store for readability before trusting the warm state.
	if _, err := l.store.Len(ctx); err != nil {
		return &PersistenceError{Op: "event store probe", Err: err}
	}
	return nil
}

// coldStart clears all in-memory state and rebuilds it from the log with
// a two-pass structure: pass one allocates a vertex per event and fills
// the per-event indexes, pass two resolves parent ids and adds both the
// DAG edges and the children-mirror entries. Event bodies missing from
// the store (a mid-write crash) are re-put from the log.
func (l *Ledger) coldStart(ctx context.Context) error {
	l.indexes.Clear()
	l.graph.Clear()

	type pendingEdges struct {
		eventID   string
		parentIDs []string
	}
	var pending []pendingEdges

	err := l.log.Replay(func(lineNo int, line []byte) error {
		rec, err := event.ParseLogLine(line)
		if err != nil {
			l.logger.Warn("skipping undecodable log line", "line", lineNo, "error", err)
			return nil
		}
		if _, exists := l.indexes.GraphIDFor(rec.EventID); exists {
			l.logger.Warn("skipping duplicate event id in log", "line", lineNo, "eventId", rec.EventID)
			return nil
		}

		vertex := l.graph.AddVertex()
		if err := l.indexes.RegisterEvent(rec.EventID, vertex, rec.ServiceName, rec.EventType, rec.TraceID); err != nil {
			return fmt.Errorf("ledger: rebuild index for line %d: %w", lineNo, err)
		}
		l.clocks.Observe(rec.NodeID, rec.VectorClock)

		ok, err := l.store.Has(ctx, rec.EventID)
		if err != nil {
			return &PersistenceError{Op: "event store probe", Err: err}
		}
		if !ok {
			if err := l.store.Put(ctx, rec.EventID, line); err != nil {
				return &PersistenceError{Op: "event store rebuild", Err: err}
			}
		}

		pending = append(pending, pendingEdges{eventID: rec.EventID, parentIDs: rec.CausalParentEventIDs})
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range pending {
		vertex, _ := l.indexes.GraphIDFor(p.eventID)
		for _, parentID := range p.parentIDs {
			parentVertex, ok := l.indexes.GraphIDFor(parentID)
			if !ok {
				// A skipped corrupt line can orphan later parents; keep
				// rebuilding with the edges that resolve.
				l.logger.Warn("parent not found while rebuilding edges",
					"eventId", p.eventID, "parentId", parentID)
				continue
			}
			if err := l.graph.AddEdge(vertex, parentVertex); err != nil {
				return fmt.Errorf("ledger: rebuild edge %d→%d: %w", vertex, parentVertex, err)
			}
			l.indexes.AddChild(parentVertex, vertex)
		}
	}
	return nil
}
