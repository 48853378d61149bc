package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/fetcher"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
)

/*
Responsibilities
- Make sure the dataset is on disk by delegating to the fetcher
- Parse the extracted tab separated file into typed rows
- Enforce the requested column selection against the header

Load Semantics
- The first line is the header
- The null token decodes to the zero value, nil for pointer fields
- Columns outside the selection are never decoded
- Raw cells are kept only when WithRawCells is set
- Malformed rows are skipped and reported, never fatal
*/

// SkipFunc observes each malformed row dropped during a load.
type SkipFunc func(RowError)

type Option func(*Loader)

// WithSkipFunc installs fn as the observer of skipped rows.
func WithSkipFunc(fn SkipFunc) Option {
	return func(l *Loader) {
		l.skipFunc = fn
	}
}

// WithRawCells keeps the undecoded cells of every row for Table.Value.
// It roughly doubles the memory of a table.
func WithRawCells() Option {
	return func(l *Loader) {
		l.rawCells = true
	}
}

type Loader struct {
	ensurer      fetcher.Ensurer
	metadataSink metadata.MetadataSink
	skipFunc     SkipFunc
	rawCells     bool
}

func New(ensurer fetcher.Ensurer, metadataSink metadata.MetadataSink, opts ...Option) *Loader {
	l := &Loader{
		ensurer:      ensurer,
		metadataSink: metadataSink,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

const ctxCheckInterval = 4096

// Load ensures spec is available locally and decodes it into rows of T,
// a struct with csv tags. With no columns every header column is selected.
func Load[T any](ctx context.Context, l *Loader, spec dataset.Spec, columns ...string) (*Table[T], error) {
	path, err := l.ensurer.EnsureLocal(ctx, spec)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	table, err := decodeFile[T](ctx, l, spec.Name(), path, columns)
	if err != nil {
		l.recordLoadError(spec, path, err)
		return nil, err
	}

	metrics.RowsLoaded.WithLabelValues(string(spec.Name())).Add(float64(table.Len()))
	l.metadataSink.RecordLoad(string(spec.Name()), table.Len(), table.Skipped(), time.Since(startTime))
	return table, nil
}

func decodeFile[T any](
	ctx context.Context,
	l *Loader,
	name dataset.Name,
	path string,
	columns []string,
) (*Table[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{
			Message: err.Error(),
			Cause:   ErrCauseOpen,
			Dataset: name,
			Path:    path,
			Err:     err,
		}
	}
	defer f.Close()

	reader := newTSVReader(f)
	header, err := reader.Read()
	if err != nil && err != io.EOF {
		return nil, &LoadError{
			Message: err.Error(),
			Cause:   ErrCauseRead,
			Dataset: name,
			Path:    path,
			Err:     err,
		}
	}

	selected, err := selectColumns(name, header, columns)
	if err != nil {
		return nil, err
	}

	table := &Table[T]{
		dataset:  name,
		columns:  make([]string, 0, len(selected)),
		index:    make(map[string]int, len(selected)),
		rawCells: l.rawCells,
	}
	// Unselected and repeated columns get a blank name so no struct field
	// binds to them.
	decodeHeader := make([]string, len(header))
	positions := make([]int, 0, len(selected))
	for i, column := range header {
		if !selected[column] {
			continue
		}
		if _, dup := table.index[column]; dup {
			continue
		}
		decodeHeader[i] = column
		table.index[column] = len(table.columns)
		table.columns = append(table.columns, column)
		positions = append(positions, i)
	}
	if len(header) == 0 {
		return table, nil
	}
	if l.rawCells {
		reader.keep = positions
	}

	dec, err := csvutil.NewDecoder(reader, decodeHeader...)
	if err != nil {
		return nil, &LoadError{
			Message: err.Error(),
			Cause:   ErrCauseSchema,
			Dataset: name,
			Path:    path,
			Err:     err,
		}
	}

	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		var row T
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		var readErr *readError
		if errors.As(err, &readErr) {
			return nil, &LoadError{
				Message: readErr.Error(),
				Cause:   ErrCauseRead,
				Dataset: name,
				Path:    path,
				Err:     readErr.err,
			}
		}
		if err != nil {
			table.skipped++
			metrics.RowsSkipped.WithLabelValues(string(name)).Inc()
			if l.skipFunc != nil {
				l.skipFunc(RowError{Dataset: name, Line: reader.Line(), Err: err})
			}
			continue
		}

		table.rows = append(table.rows, row)
		if l.rawCells {
			table.raw = append(table.raw, reader.Kept())
		}
	}

	if table.skipped > 0 {
		log := logging.With("loader")
		log.Warn().
			Str("dataset", string(name)).
			Int("skipped", table.skipped).
			Msg("malformed rows skipped")
	}
	return table, nil
}

// selectColumns returns the set of requested columns, or every header
// column when none are requested.
func selectColumns(name dataset.Name, header []string, columns []string) (map[string]bool, error) {
	present := make(map[string]bool, len(header))
	for _, column := range header {
		present[column] = true
	}
	if len(columns) == 0 {
		return present, nil
	}

	var missing []string
	selected := make(map[string]bool, len(columns))
	for _, column := range columns {
		if !present[column] {
			missing = append(missing, column)
			continue
		}
		selected[column] = true
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Dataset: name, Missing: missing}
	}
	return selected, nil
}

func (l *Loader) recordLoadError(spec dataset.Spec, path string, err error) {
	l.metadataSink.RecordError(
		time.Now(),
		"loader",
		"Load",
		mapLoadErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrDataset, string(spec.Name())),
			metadata.NewAttr(metadata.AttrPath, path),
		},
	)
}
