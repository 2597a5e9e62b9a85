// Package projector folds event payloads into entity state. A reducer is
// a pure function from (state, payload, eventType) to the next state;
// reducers are registered per event type and applied in causal order.
package projector

import (
	"log/slog"
	"sync"

	"github.com/Mindburn-Labs/graphlog/pkg/event"
)

// Reducer computes the next entity state from the current state and an
// event payload. Implementations must not mutate either input; they
// return a fresh map.
type Reducer func(state map[string]any, payload map[string]any, eventType string) map[string]any

// Projector is a registry of reducers keyed by event type.
type Projector struct {
	mu       sync.RWMutex
	reducers map[string]Reducer
	logger   *slog.Logger
}

// New creates an empty projector.
func New(logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		reducers: make(map[string]Reducer),
		logger:   logger,
	}
}

// NewWithDefaults creates a projector preloaded with the default domain
// catalogue (user, product, and order lifecycles).
func NewWithDefaults(logger *slog.Logger) *Projector {
	p := New(logger)
	p.registerDefaults()
	return p
}

// Register installs (or replaces) the reducer for an event type.
func (p *Projector) Register(eventType string, r Reducer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reducers[eventType] = r
}

// Has reports whether a reducer is registered for the event type.
func (p *Projector) Has(eventType string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.reducers[eventType]
	return ok
}

// Project folds the given events, already filtered to one entity and
// sorted in causal (cause-before-effect) order, into a state mapping.
// Events without a registered reducer are skipped with a warning; a
// panicking reducer is treated as a no-op for that event.
func (p *Projector) Project(events []*event.Record) map[string]any {
	state := make(map[string]any)
	for _, ev := range events {
		state = p.apply(state, ev)
	}
	return state
}

func (p *Projector) apply(state map[string]any, ev *event.Record) map[string]any {
	p.mu.RLock()
	r, ok := p.reducers[ev.EventType]
	p.mu.RUnlock()

	if !ok {
		p.logger.Warn("no reducer registered, skipping event",
			"eventType", ev.EventType, "eventId", ev.EventID)
		return state
	}

	next := func() (out map[string]any) {
		defer func() {
			if rec := recover(); rec != nil {
				p.logger.Warn("reducer panicked, skipping event",
					"eventType", ev.EventType, "eventId", ev.EventID, "panic", rec)
				out = state
			}
		}()
		return r(state, ev.Payload, ev.EventType)
	}()

	if next == nil {
		return state
	}
	return next
}
