// Package id generates the broker's ULID identifiers.
//
// IDs are prefixed by kind (req_*, evt_*, trace_*, span_*) so they read well
// in logs, and sort by creation time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies an API request
type RequestID string

// EventID identifies one focus event delivered to a webhook or subscriber
type EventID string

// TraceID identifies a trace
type TraceID string

// SpanID identifies a span within a trace
type SpanID string

const (
	RequestPrefix = "req"
	EventPrefix   = "evt"
	TracePrefix   = "trace"
	SpanPrefix    = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with monotonic, cryptographically random
// entropy
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator reading from entropy. Tests use
// it with a deterministic reader.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy, now: time.Now}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

func NewRequestID() RequestID { return RequestID(Default().GenerateWithPrefix(RequestPrefix)) }
func NewEventID() EventID     { return EventID(Default().GenerateWithPrefix(EventPrefix)) }
func NewTraceID() TraceID     { return TraceID(Default().GenerateWithPrefix(TracePrefix)) }
func NewSpanID() SpanID       { return SpanID(Default().GenerateWithPrefix(SpanPrefix)) }

func (id RequestID) String() string { return string(id) }
func (id EventID) String() string   { return string(id) }
func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }

// Split separates a prefixed id into prefix and ULID. Unprefixed ids return
// an empty prefix.
func Split(s string) (prefix string, value ulid.ULID, err error) {
	raw := s
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		prefix, raw = s[:i], s[i+1:]
	}
	value, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return prefix, value, nil
}

// IsValid reports whether s is a ULID, prefixed or not
func IsValid(s string) bool {
	_, _, err := Split(s)
	return err == nil
}

// Timestamp extracts the creation time of an id
func Timestamp(s string) (time.Time, error) {
	_, value, err := Split(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(value.Time()), nil
}
