package store

import (
	"errors"

	"github.com/rohmanhakim/movie-sampler/internal/fetcher"
	"github.com/rohmanhakim/movie-sampler/internal/loader"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
)

var ErrUnknownCachePolicy = errors.New("unknown cache policy")

// mapLoadFailureToMetadataCause maps a failed base load
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapLoadFailureToMetadataCause(err error) metadata.ErrorCause {
	var (
		fetchErr  *fetcher.FetchError
		schemaErr *loader.SchemaError
		loadErr   *loader.LoadError
	)
	switch {
	case errors.As(err, &fetchErr):
		if fetchErr.Cause == fetcher.ErrCauseDecompress {
			return metadata.CauseContentInvalid
		}
		if fetchErr.Cause == fetcher.ErrCauseStorage {
			return metadata.CauseStorageFailure
		}
		return metadata.CauseNetworkFailure
	case errors.As(err, &schemaErr):
		return metadata.CauseContentInvalid
	case errors.As(err, &loadErr):
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
