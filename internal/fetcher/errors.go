package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout        FetchErrorCause = "timeout"
	ErrCauseNetworkFailure FetchErrorCause = "network issues"
	ErrCauseBadStatus      FetchErrorCause = "non-success status"
	ErrCauseDecompress     FetchErrorCause = "decompression failed"
	ErrCauseStorage        FetchErrorCause = "cache write failed"
)

// FetchError reports a failure to make a dataset available locally.
// StatusCode is zero when no HTTP response was received.
type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetcher error: %s: status %d for %s", e.Cause, e.StatusCode, e.URL)
	}
	if e.URL != "" {
		return fmt.Sprintf("fetcher error: %s: %s (%s)", e.Cause, e.Message, e.URL)
	}
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable reports whether a later call may succeed. Nothing in this
// package retries on its own.
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseBadStatus:
		return metadata.CauseNetworkFailure
	case ErrCauseDecompress:
		return metadata.CauseContentInvalid
	case ErrCauseStorage:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
