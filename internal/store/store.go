package store

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/loader"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"golang.org/x/sync/errgroup"
)

/*
Responsibilities
- Load ratings, basics and crew through the loader
- Merge them into one table keyed by movie id
- Serve filtered views and single-title lookups

Caching Semantics
- The merged base table is built at most once per Store
- CachePerThreshold: each vote threshold gets its own view, kept in a
  bounded LRU; a threshold of zero or less is the base table itself
- CacheFirstBuild: the first view built is returned for every later
  threshold and is also the table GetMetadata searches
- Callers always receive a deep copy

A Store is not safe for concurrent use; the engine serialises access.
*/

type CachePolicy string

const (
	CachePerThreshold CachePolicy = "per-threshold"
	CacheFirstBuild   CachePolicy = "first-build"
)

// ParseCachePolicy validates a user supplied policy name.
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch CachePolicy(s) {
	case CachePerThreshold, CacheFirstBuild:
		return CachePolicy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCachePolicy, s)
	}
}

const DefaultViewCacheSize = 8

type Option func(*Store)

func WithCachePolicy(policy CachePolicy) Option {
	return func(s *Store) {
		s.policy = policy
	}
}

// WithViewCacheSize bounds the number of filtered views kept at once.
// Sizes below one fall back to DefaultViewCacheSize.
func WithViewCacheSize(size int) Option {
	return func(s *Store) {
		s.viewCacheSize = size
	}
}

type Store struct {
	loader        *loader.Loader
	catalog       dataset.Catalog
	metadataSink  metadata.MetadataSink
	policy        CachePolicy
	viewCacheSize int

	base  *Table
	first *Table
	views *lru.Cache[int64, Table]
}

func New(
	l *loader.Loader,
	catalog dataset.Catalog,
	metadataSink metadata.MetadataSink,
	opts ...Option,
) *Store {
	s := &Store{
		loader:        l,
		catalog:       catalog,
		metadataSink:  metadataSink,
		policy:        CachePerThreshold,
		viewCacheSize: DefaultViewCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.viewCacheSize < 1 {
		s.viewCacheSize = DefaultViewCacheSize
	}
	// lru.New only fails for non-positive sizes.
	s.views, _ = lru.New[int64, Table](s.viewCacheSize)
	return s
}

// LoadMetadata returns the titles with at least minVotes votes. A minVotes
// of zero or less keeps every title, including those without a vote count.
func (s *Store) LoadMetadata(ctx context.Context, minVotes int64) (Table, error) {
	view, err := s.view(ctx, minVotes)
	if err != nil {
		return Table{}, err
	}
	return view.Clone(), nil
}

// GetMetadata looks up one title by exact movie id. An unknown id is not an
// error: it yields ok == false.
func (s *Store) GetMetadata(ctx context.Context, movieID string) (row Row, ok bool, err error) {
	var table Table
	if s.policy == CacheFirstBuild {
		table, err = s.view(ctx, 0)
	} else {
		table, err = s.ensureBase(ctx)
	}
	if err != nil {
		return Row{}, false, err
	}
	row, ok = table.Lookup(movieID)
	return row, ok, nil
}

func (s *Store) view(ctx context.Context, minVotes int64) (Table, error) {
	if s.policy == CacheFirstBuild && s.first != nil {
		return *s.first, nil
	}

	base, err := s.ensureBase(ctx)
	if err != nil {
		return Table{}, err
	}

	view := base
	if minVotes > 0 {
		cached, ok := s.views.Get(minVotes)
		if ok {
			view = cached
		} else {
			view = base.filter(minVotes)
			s.views.Add(minVotes, view)
			metrics.MetadataViewBuilds.Inc()
			log := logging.With("store")
			log.Debug().
				Int64("min_votes", minVotes).
				Int("rows", view.Len()).
				Msg("filtered view built")
		}
	}

	if s.policy == CacheFirstBuild {
		s.first = &view
	}
	return view, nil
}

func (s *Store) ensureBase(ctx context.Context) (Table, error) {
	if s.base != nil {
		return *s.base, nil
	}

	log := logging.With("store")
	log.Info().Msg("Loading IMDb metadata")
	startTime := time.Now()

	var (
		ratings *loader.Table[ratingsRecord]
		basics  *loader.Table[basicsRecord]
		crew    *loader.Table[crewRecord]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ratings, err = loader.Load[ratingsRecord](gctx, s.loader, s.catalog.MustSpec(dataset.Ratings), ratingsColumns...)
		return err
	})
	g.Go(func() (err error) {
		basics, err = loader.Load[basicsRecord](gctx, s.loader, s.catalog.MustSpec(dataset.Basics), basicsColumns...)
		return err
	})
	g.Go(func() (err error) {
		crew, err = loader.Load[crewRecord](gctx, s.loader, s.catalog.MustSpec(dataset.Crew), crewColumns...)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"store",
			"Store.LoadMetadata",
			mapLoadFailureToMetadataCause(err),
			err.Error(),
			nil,
		)
		return Table{}, fmt.Errorf("load metadata: %w", err)
	}

	base := indexRows(merge(ratings, basics, crew))
	s.base = &base

	metrics.MetadataRows.Set(float64(base.Len()))
	s.metadataSink.RecordLoad("metadata", base.Len(), 0, time.Since(startTime))
	return base, nil
}

// indexRows wraps rows that are already unique on MovieID.
func indexRows(rows []Row) Table {
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		index[row.MovieID] = i
	}
	return Table{rows: rows, index: index}
}
