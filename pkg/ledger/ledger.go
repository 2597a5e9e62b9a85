// Package ledger implements the causal event ledger: an append-only store
// of immutable events whose causal parents form a DAG, with secondary
// indexes, vector-clock stamping, two-tier persistence, and the graph
// queries served over them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/Mindburn-Labs/graphlog/pkg/config"
	"github.com/Mindburn-Labs/graphlog/pkg/dag"
	"github.com/Mindburn-Labs/graphlog/pkg/event"
	"github.com/Mindburn-Labs/graphlog/pkg/eventlog"
	"github.com/Mindburn-Labs/graphlog/pkg/eventstore"
	"github.com/Mindburn-Labs/graphlog/pkg/index"
	"github.com/Mindburn-Labs/graphlog/pkg/observability"
	"github.com/Mindburn-Labs/graphlog/pkg/projector"
	"github.com/Mindburn-Labs/graphlog/pkg/schema"
	"github.com/Mindburn-Labs/graphlog/pkg/vclock"
)

// DefaultNodeID is the implementation-chosen local node id when none is
// configured.
const DefaultNodeID = "default-node"

// Ledger coordinates the DAG, the index set, the vector-clock manager,
// the event store, and the log writer. One reader-writer lock guards all
// mutable state: writers hold exclusive, readers hold shared, and a
// multi-step query holds its read lease for the full computation so the
// answer is a consistent snapshot.
type Ledger struct {
	mu sync.RWMutex

	nodeID string
	logger *slog.Logger

	graph   *dag.Graph
	indexes *index.Set
	clocks  *vclock.Manager
	store   eventstore.Store
	log     *eventlog.Log
	persist *index.Persistence
	project *projector.Projector
	schemas *schema.Registry
	obs     *observability.Provider

	closed bool

	totalEventsIngested  uint64
	totalCycleChecks     uint64
	totalCyclesPrevented uint64
	startupPath          string
}

type options struct {
	nodeID  string
	fsync   eventlog.FsyncPolicy
	logger  *slog.Logger
	project *projector.Projector
	schemas *schema.Registry
	obs     *observability.Provider
	store   eventstore.Store
}

// Option customizes ledger construction.
type Option func(*options)

// WithNodeID sets the local node id used for vector-clock stamping.
func WithNodeID(nodeID string) Option {
	return func(o *options) { o.nodeID = nodeID }
}

// WithFsync makes every log append flush to stable storage.
func WithFsync() Option {
	return func(o *options) { o.fsync = eventlog.FsyncAlways }
}

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProjector replaces the default reducer catalogue.
func WithProjector(p *projector.Projector) Option {
	return func(o *options) { o.project = p }
}

// WithSchemaRegistry enables payload validation at ingestion for event
// types that have a registered schema.
func WithSchemaRegistry(r *schema.Registry) Option {
	return func(o *options) { o.schemas = r }
}

// WithObservability attaches an instrumentation provider.
func WithObservability(p *observability.Provider) Option {
	return func(o *options) { o.obs = p }
}

// WithEventStore injects an event store, replacing the embedded SQLite
// engine. Mainly for tests.
func WithEventStore(s eventstore.Store) Option {
	return func(o *options) { o.store = s }
}

// New opens (or creates) a ledger whose system of record is the log at
// logFilePath. The data directory is the parent of the log path; the
// embedded event store and the index snapshots live there. Startup takes
// the warm path when every index snapshot parses, otherwise the cold path
// rebuilds everything from the log.
func New(logFilePath string, initialGraphCapacity int, opts ...Option) (*Ledger, error) {
	if logFilePath == "" {
		return nil, fmt.Errorf("%w: log file path cannot be empty", ErrInvalidArgument)
	}

	o := options{
		nodeID: DefaultNodeID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	dataDir := filepath.Dir(logFilePath)
	if dataDir == "" {
		dataDir = "."
	}

	log, err := eventlog.New(logFilePath, o.fsync)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = eventstore.OpenSQLite(dataDir)
		if err != nil {
			return nil, err
		}
	}

	clocks, err := vclock.NewManager(o.nodeID)
	if err != nil {
		return nil, err
	}

	project := o.project
	if project == nil {
		project = projector.NewWithDefaults(o.logger)
	}

	l := &Ledger{
		nodeID:  o.nodeID,
		logger:  o.logger.With("component", "ledger"),
		graph:   dag.New(initialGraphCapacity),
		indexes: index.NewSet(),
		clocks:  clocks,
		store:   store,
		log:     log,
		persist: index.NewPersistence(dataDir),
		project: project,
		schemas: o.schemas,
		obs:     o.obs,
	}

	l.mu.Lock()
	err = l.load(context.Background())
	l.mu.Unlock()
	if err != nil {
		store.Close()
		return nil, err
	}

	l.logger.Info("causal ledger initialized",
		"startup", l.startupPath,
		"events", l.indexes.NumEvents(),
		"edges", l.graph.NumEdges(),
		"logFile", logFilePath,
	)
	return l, nil
}

// FromConfig opens a ledger from a loaded configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Ledger, error) {
	base := []Option{WithNodeID(cfg.NodeID)}
	if cfg.Fsync {
		base = append(base, WithFsync())
	}
	return New(cfg.LogFilePath, cfg.InitialGraphCapacity, append(base, opts...)...)
}

// Close flushes the index snapshots atomically and closes the event
// store. Intended as the process shutdown hook; if it never runs, the
// next startup falls back to the cold path from the log.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if err := l.persist.SaveAll(l.indexes); err != nil {
		firstErr = &PersistenceError{Op: "index snapshot", Err: err}
	}
	if err := l.store.Close(); err != nil && firstErr == nil {
		firstErr = &PersistenceError{Op: "event store close", Err: err}
	}
	l.logger.Info("causal ledger closed", "events", l.indexes.NumEvents())
	return firstErr
}

// NodeID returns the local node id.
func (l *Ledger) NodeID() string { return l.nodeID }

// Projector returns the reducer registry, for registering custom
// reducers.
func (l *Ledger) Projector() *projector.Projector { return l.project }

// ReceiveRemoteEvent folds a remote event's clock into the local clock
// and records the peer's last-seen clock. Entry point for a future peer
// link; there is no transport behind it.
func (l *Ledger) ReceiveRemoteEvent(remote *event.Record) error {
	if remote == nil {
		return fmt.Errorf("%w: remote event cannot be nil", ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.clocks.Receive(remote.NodeID, remote.VectorClock)
}

// fetchRecord loads and decodes one event body from the store. Callers
// hold at least a read lease.
func (l *Ledger) fetchRecord(ctx context.Context, eventID string) (*event.Record, error) {
	body, err := l.store.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "event store get", Err: err}
	}
	rec, err := event.ParseLogLine(body)
	if err != nil {
		return nil, &PersistenceError{Op: "event body decode", Err: err}
	}
	return rec, nil
}
