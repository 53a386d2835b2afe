package fallback_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestSlogReporterWritesTextLine(t *testing.T) {
	var buf bytes.Buffer
	r := fallback.New(&buf)

	r.Report("log entry rejected", "field", "layer", "reason", "not configured")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="log entry rejected"`)
	assert.Contains(t, out, "channel=logkit-fallback")
	assert.Contains(t, out, `reason="not configured"`)
}

func TestSlogReporterIgnoresWriterFailure(t *testing.T) {
	r := fallback.New(failingWriter{})

	assert.NotPanics(t, func() {
		r.Report("batch dropped", "entries", 3)
	})
}

func TestNopReporter(t *testing.T) {
	var r fallback.Reporter = fallback.Nop{}
	assert.NotPanics(t, func() {
		r.Report("anything")
	})
}

func TestRecorderConcurrentReports(t *testing.T) {
	r := fallback.NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Report("even", "i", i)
				return
			}
			r.Report("odd", "i", i)
		}(i)
	}
	wg.Wait()

	require.Len(t, r.Reports(), 20)
	assert.Equal(t, 10, r.Count("even"))
	assert.Equal(t, 10, r.Count("odd"))
	assert.Zero(t, r.Count("missing"))
}
