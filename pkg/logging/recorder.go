package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// Recorder is a JSON logger whose output is kept in memory for assertions.
type Recorder struct {
	Logger *zerolog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewRecorder returns a trace level Recorder. The global level is lowered
// for the duration of the test.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()

	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	r := &Recorder{}
	l := zerolog.New(r).Level(zerolog.TraceLevel).With().Timestamp().Logger()
	r.Logger = &l
	return r
}

// Write implements io.Writer.
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// String returns everything logged so far.
func (r *Recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Expect fails the test unless every substring appears in the output.
func (r *Recorder) Expect(t testing.TB, substrs ...string) {
	t.Helper()
	out := r.String()
	for _, s := range substrs {
		if !strings.Contains(out, s) {
			t.Errorf("log output missing %q\n%s", s, out)
		}
	}
}
