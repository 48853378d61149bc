package fetcher

import (
	"context"

	"github.com/rohmanhakim/movie-sampler/internal/dataset"
)

// Ensurer makes a dataset available on local disk and returns the path of
// the decompressed file.
type Ensurer interface {
	EnsureLocal(ctx context.Context, spec dataset.Spec) (string, error)
}
