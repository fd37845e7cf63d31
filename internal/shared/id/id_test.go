package id

import (
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"request", func() string { return NewRequestID().String() }, RequestPrefix},
		{"event", func() string { return NewEventID().String() }, EventPrefix},
		{"trace", func() string { return NewTraceID().String() }, TracePrefix},
		{"span", func() string { return NewSpanID().String() }, SpanPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.gen()
			assert.True(t, strings.HasPrefix(s, tt.prefix+"_"))

			prefix, _, err := Split(s)
			require.NoError(t, err)
			assert.Equal(t, tt.prefix, prefix)
			assert.True(t, IsValid(s))
		})
	}
}

func TestSplit(t *testing.T) {
	raw := NewGenerator().GenerateString()

	prefix, value, err := Split(raw)
	require.NoError(t, err)
	assert.Empty(t, prefix)
	assert.Equal(t, raw, value.String())

	_, _, err = Split("evt_not-a-ulid")
	assert.Error(t, err)
	assert.False(t, IsValid(""))
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	s := NewEventID().String()

	ts, err := Timestamp(s)
	require.NoError(t, err)
	assert.True(t, ts.After(before))
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)

	_, err = Timestamp("bogus")
	assert.Error(t, err)
}

func TestGeneratorSortsByCreation(t *testing.T) {
	g := NewGenerator()
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = g.GenerateString()
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestConcurrentGeneration(t *testing.T) {
	g := NewGenerator()
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s := g.GenerateWithPrefix(EventPrefix)
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}

func BenchmarkGenerateWithPrefix(b *testing.B) {
	g := NewGenerator()
	for i := 0; i < b.N; i++ {
		_ = g.GenerateWithPrefix(RequestPrefix)
	}
}
