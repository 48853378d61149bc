package loader

import (
	"fmt"
	"strings"

	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
)

type LoadErrorCause string

const (
	ErrCauseOpen   LoadErrorCause = "open failed"
	ErrCauseRead   LoadErrorCause = "read failed"
	ErrCauseSchema LoadErrorCause = "schema mismatch"
)

// SchemaError reports requested columns that the file header does not carry.
type SchemaError struct {
	Dataset dataset.Name
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("loader error: %s: dataset %s lacks columns [%s]",
		ErrCauseSchema, e.Dataset, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// LoadError reports a failure to read an extracted dataset file.
type LoadError struct {
	Message string
	Cause   LoadErrorCause
	Dataset dataset.Name
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader error: %s: %s (%s)", e.Cause, e.Message, e.Path)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Severity() failure.Severity {
	return failure.SeverityFatal
}

// RowError describes one malformed row that was skipped. Line is 1-based
// and counts the header.
type RowError struct {
	Dataset dataset.Name
	Line    int
	Err     error
}

func (e RowError) Error() string {
	return fmt.Sprintf("loader: dataset %s line %d skipped: %v", e.Dataset, e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// mapLoadErrorToMetadataCause maps loader-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapLoadErrorToMetadataCause(err error) metadata.ErrorCause {
	switch e := err.(type) {
	case *SchemaError:
		return metadata.CauseContentInvalid
	case *LoadError:
		switch e.Cause {
		case ErrCauseOpen, ErrCauseRead:
			return metadata.CauseStorageFailure
		case ErrCauseSchema:
			return metadata.CauseContentInvalid
		}
	}
	return metadata.CauseUnknown
}
