// Package event defines the immutable event record and its self-describing
// wire form used by the append-only log.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/Mindburn-Labs/graphlog/pkg/vclock"
)

// Defaults applied when a log line omits optional fields.
const (
	DefaultNodeID         = "default-node"
	DefaultTraceID        = "unknown-trace"
	DefaultServiceVersion = "unknown"
	DefaultHostname       = "unknown"
)

// Record is an immutable commit in the ledger: identity, metadata, payload,
// parent ids, and vector clock. Fields are exported for serialization;
// treat a Record as read-only after creation and use Clone when handing
// one across an ownership boundary.
type Record struct {
	EventID              string         `json:"eventId"`
	Timestamp            time.Time      `json:"timestamp"`
	NodeID               string         `json:"nodeId"`
	TraceID              string         `json:"traceId"`
	ServiceName          string         `json:"serviceName"`
	ServiceVersion       string         `json:"serviceVersion"`
	Hostname             string         `json:"hostname"`
	EventType            string         `json:"eventType"`
	Payload              map[string]any `json:"payload"`
	CausalParentEventIDs []string       `json:"causalParentEventIds"`
	VectorClock          *vclock.Clock  `json:"vectorClock"`
}

// New creates a record with a freshly generated event id and the current
// wall-clock timestamp. Payload and parent ids are copied.
func New(nodeID, traceID, serviceName, serviceVersion, hostname, eventType string,
	payload map[string]any, parentIDs []string, clock *vclock.Clock) *Record {

	if nodeID == "" {
		nodeID = DefaultNodeID
	}
	return &Record{
		EventID:              uuid.NewString(),
		Timestamp:            time.Now().UTC(),
		NodeID:               nodeID,
		TraceID:              traceID,
		ServiceName:          serviceName,
		ServiceVersion:       NormalizeServiceVersion(serviceVersion),
		Hostname:             hostname,
		EventType:            eventType,
		Payload:              copyPayload(payload),
		CausalParentEventIDs: copyStrings(parentIDs),
		VectorClock:          clock.Copy(),
	}
}

// NormalizeServiceVersion canonicalizes a semver-shaped version string
// ("v1.2" → "1.2.0"). Non-semver strings pass through unchanged so that
// free-form versions remain usable.
func NormalizeServiceVersion(v string) string {
	if v == "" {
		return DefaultServiceVersion
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return v
	}
	return parsed.String()
}

// MarshalLogLine returns the canonical (RFC 8785) one-line JSON form of
// the record. The canonical form makes log lines deterministic for a given
// record, so serialize-then-parse is a fixed point.
func (r *Record) MarshalLogLine() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("event: marshal record %s: %w", r.EventID, err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("event: canonicalize record %s: %w", r.EventID, err)
	}
	return canonical, nil
}

// ParseLogLine decodes one log line. Unknown fields are ignored; missing
// optional fields default. A line without an event id or event type is
// rejected.
func ParseLogLine(line []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("event: decode log line: %w", err)
	}
	if r.EventID == "" {
		return nil, fmt.Errorf("event: log line missing eventId")
	}
	if r.EventType == "" {
		return nil, fmt.Errorf("event: log line missing eventType")
	}
	if r.NodeID == "" {
		r.NodeID = DefaultNodeID
	}
	if r.TraceID == "" {
		r.TraceID = DefaultTraceID
	}
	if r.ServiceVersion == "" {
		r.ServiceVersion = DefaultServiceVersion
	}
	if r.Hostname == "" {
		r.Hostname = DefaultHostname
	}
	if r.Payload == nil {
		r.Payload = make(map[string]any)
	}
	if r.CausalParentEventIDs == nil {
		r.CausalParentEventIDs = []string{}
	}
	if r.VectorClock == nil {
		r.VectorClock = vclock.New()
	}
	return &r, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Payload = copyPayload(r.Payload)
	out.CausalParentEventIDs = copyStrings(r.CausalParentEventIDs)
	out.VectorClock = r.VectorClock.Copy()
	return &out
}

// HappensBefore reports whether this event causally precedes other, by
// vector-clock comparison.
func (r *Record) HappensBefore(other *Record) bool {
	if other == nil || other.VectorClock == nil || r.VectorClock == nil {
		return false
	}
	return r.VectorClock.HappensBefore(other.VectorClock)
}

// ConcurrentWith reports whether neither event causally precedes the other.
func (r *Record) ConcurrentWith(other *Record) bool {
	if other == nil {
		return false
	}
	return !r.HappensBefore(other) && !other.HappensBefore(r)
}

// Relationship classifies the causal relationship between two events from
// their vector clocks.
func (r *Record) Relationship(other *Record) CausalRelationship {
	if r == nil || other == nil {
		return Undefined
	}
	if r.VectorClock.IsEmpty() || other.VectorClock.IsEmpty() {
		return Undefined
	}
	if r.VectorClock.Equal(other.VectorClock) {
		return Identical
	}
	if r.HappensBefore(other) {
		return Causes
	}
	if other.HappensBefore(r) {
		return CausedBy
	}
	return Concurrent
}

func (r *Record) String() string {
	return fmt.Sprintf("Event{id=%s, trace=%s, service=%s, type=%s, parents=%d, clock=%s}",
		r.EventID, r.TraceID, r.ServiceName, r.EventType, len(r.CausalParentEventIDs), r.VectorClock)
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyPayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyPayload(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		// Numbers, booleans, strings are immutable values.
		return v
	}
}
