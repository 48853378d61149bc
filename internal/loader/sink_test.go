package loader_test

import (
	"time"

	"github.com/rohmanhakim/movie-sampler/internal/metadata"
)

// recordingSink keeps the error causes and load events it observes.
type recordingSink struct {
	metadata.NoopSink
	errors []metadata.ErrorCause
	loads  []int
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.errors = append(s.errors, cause)
}

func (s *recordingSink) RecordLoad(dataset string, rows int, skipped int, duration time.Duration) {
	s.loads = append(s.loads, rows)
}
