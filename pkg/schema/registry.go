// Package schema validates event payloads against per-event-type JSON
// Schemas. Registration is optional: types without a schema pass
// unchecked.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry maps event types to compiled JSON Schemas (draft 2020-12).
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles and installs the schema for an event type. An empty
// schema string removes any existing schema.
func (r *Registry) Register(eventType, schemaJSON string) error {
	if eventType == "" {
		return fmt.Errorf("schema: event type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if schemaJSON == "" {
		delete(r.schemas, eventType)
		return nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://graphlog.schemas.local/events/%s.schema.json", eventType)
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("schema: load schema for %s: %w", eventType, err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("schema: compile schema for %s: %w", eventType, err)
	}
	r.schemas[eventType] = compiled
	return nil
}

// Has reports whether a schema is registered for the event type.
func (r *Registry) Has(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[eventType]
	return ok
}

// Validate checks the payload against the registered schema, if any.
func (r *Registry) Validate(eventType string, payload map[string]any) error {
	r.mu.RLock()
	s, ok := r.schemas[eventType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	// The validator expects plain decoded JSON values.
	doc := make(map[string]any, len(payload))
	for k, v := range payload {
		doc[k] = v
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema: payload for %s rejected: %w", eventType, err)
	}
	return nil
}
