package metadata

import (
	"time"

	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rs/zerolog"
)

/*
Metadata Collected
- Download and extraction events per dataset
- HTTP status codes and transferred sizes
- Archive checksums
- Row counts and skipped rows per loaded dataset

Metadata is write-only.
No component may read metadata to influence fetching, caching or sampling.
*/

/*
Recorder captures structured run events and writes them as zerolog lines
tagged with the run id.
It must not:
- perform I/O decisions
- affect control flow
*/
type Recorder struct {
	logger zerolog.Logger
}

func NewRecorder(runID string) Recorder {
	return NewRecorderWithLogger(runID, logging.With("metadata"))
}

// NewRecorderWithLogger is NewRecorder with an explicit destination logger.
func NewRecorderWithLogger(runID string, logger zerolog.Logger) Recorder {
	return Recorder{
		logger: logger.With().Str("run_id", runID).Logger(),
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	ev := r.logger.Error().
		Str("event", "error").
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Str("cause", cause.String()).
		Str("error", errorString)
	withAttrs(ev, attrs).Msg("operation failed")
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeBytes int64,
) {
	r.logger.Info().
		Str("event", "fetch").
		Str("url", fetchUrl).
		Int("http_status", httpStatus).
		Dur("duration", duration).
		Int64("size_bytes", sizeBytes).
		Msg("fetched")
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	ev := r.logger.Info().
		Str("event", "artifact").
		Str("kind", string(kind)).
		Str("path", path)
	withAttrs(ev, attrs).Msg("artifact written")
}

func (r *Recorder) RecordLoad(dataset string, rows int, skipped int, duration time.Duration) {
	r.logger.Info().
		Str("event", "load").
		Str("dataset", dataset).
		Int("rows", rows).
		Int("skipped", skipped).
		Dur("duration", duration).
		Msgf("%d rows ready", rows)
}

/*
RecordFinalSampleStats records a terminal summary of a sampling run.

Contract:
  - MUST be called at most once per run, after the last draw.
  - Recorded stats MUST NOT influence control flow.
*/
func (r *Recorder) RecordFinalSampleStats(
	drawn int,
	remaining int,
	duration time.Duration,
) {
	stats := sampleStats{
		drawn:      drawn,
		remaining:  remaining,
		durationMs: duration.Milliseconds(),
	}

	r.append(stats)
}

func (r *Recorder) append(stats sampleStats) {
	r.logger.Info().
		Str("event", "sample_stats").
		Int("drawn", stats.drawn).
		Int("remaining", stats.remaining).
		Int64("duration_ms", stats.durationMs).
		Msg("sampling finished")
}

func withAttrs(ev *zerolog.Event, attrs []Attribute) *zerolog.Event {
	for _, attr := range attrs {
		ev = ev.Str(string(attr.Key), attr.Value)
	}
	return ev
}

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)

	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		sizeBytes int64,
	)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordLoad(dataset string, rows int, skipped int, duration time.Duration)
}

// NoopSink implements MetadataSink but does nothing.
// Tests inject it where metadata is irrelevant.
type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeBytes int64,
) {
}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordLoad(dataset string, rows int, skipped int, duration time.Duration) {}

func (n *NoopSink) RecordFinalSampleStats(drawn int, remaining int, duration time.Duration) {}
