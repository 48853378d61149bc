package scraper

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
)

// ErrNotFound means the page was fetched but lacks the expected element.
var ErrNotFound = errors.New("scraper: element not found")

// HTTPError reports a non-200 answer from a scraped site.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("scraper error: bad status %d for %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Severity() failure.Severity {
	if e.IsRetryable() {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable reports whether the site asked us to come back later.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type ScrapeErrorCause string

const (
	ErrCauseRequest ScrapeErrorCause = "request failed"
	ErrCauseTimeout ScrapeErrorCause = "timeout"
	ErrCauseParse   ScrapeErrorCause = "unparseable page"
)

// ScrapeError reports a failure below the HTTP status level.
type ScrapeError struct {
	Message   string
	Retryable bool
	Cause     ScrapeErrorCause
	URL       string
	Err       error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scraper error: %s: %s (%s)", e.Cause, e.Message, e.URL)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

func (e *ScrapeError) IsRetryable() bool {
	return e.Retryable
}

func (e *ScrapeError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapScrapeErrorToMetadataCause maps scraper-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapScrapeErrorToMetadataCause(err error) metadata.ErrorCause {
	var (
		httpErr   *HTTPError
		scrapeErr *ScrapeError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return metadata.CauseContentInvalid
	case errors.As(err, &httpErr):
		return metadata.CauseNetworkFailure
	case errors.As(err, &scrapeErr):
		if scrapeErr.Cause == ErrCauseParse {
			return metadata.CauseContentInvalid
		}
		return metadata.CauseNetworkFailure
	default:
		return metadata.CauseUnknown
	}
}

// outcomeOf labels err for the scrape_requests_total counter.
func outcomeOf(err error) string {
	var (
		httpErr   *HTTPError
		scrapeErr *ScrapeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &httpErr):
		return "bad_status"
	case errors.As(err, &scrapeErr) && scrapeErr.Cause == ErrCauseTimeout:
		return "timeout"
	default:
		return "error"
	}
}
