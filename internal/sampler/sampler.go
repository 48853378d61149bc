package sampler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"github.com/rohmanhakim/movie-sampler/internal/store"
)

/*
Sampling Semantics
- The pool is built on the first draw, or the first draw after Reset, from
  the metadata view of that draw's threshold
- Thresholds passed to later draws are ignored until Reset
- The pool is shuffled once; every draw removes one id from its end
- An id is returned at most once per pool
- An empty pool stays empty: every further draw fails with
  ErrPoolExhausted until Reset

A Sampler is not safe for concurrent use.
*/

var ErrPoolExhausted = errors.New("no movie ids left that satisfy the threshold")

// Source provides the table a pool is built from.
type Source interface {
	LoadMetadata(ctx context.Context, minVotes int64) (store.Table, error)
}

type Sampler struct {
	source    Source
	rng       *rand.Rand
	pool      []string
	built     bool
	threshold int64
	drawn     int
}

// New returns a sampler drawing from source. A zero seed picks a time based
// seed, any other value makes the draw order reproducible.
func New(source Source, seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		source: source,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// RandomMovieID draws one movie id that has not been drawn from the current
// pool before.
func (s *Sampler) RandomMovieID(ctx context.Context, minVotes int64) (string, error) {
	if !s.built {
		if err := s.build(ctx, minVotes); err != nil {
			return "", err
		}
	}

	last := len(s.pool) - 1
	if last < 0 {
		return "", ErrPoolExhausted
	}
	id := s.pool[last]
	s.pool = s.pool[:last]
	s.drawn++

	metrics.PoolDraws.Inc()
	metrics.PoolRemaining.Set(float64(len(s.pool)))
	return id, nil
}

func (s *Sampler) build(ctx context.Context, minVotes int64) error {
	table, err := s.source.LoadMetadata(ctx, minVotes)
	if err != nil {
		return err
	}

	ids := table.MovieIDs()
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	s.pool = ids
	s.built = true
	s.threshold = minVotes
	s.drawn = 0

	metrics.PoolBuilds.Inc()
	metrics.PoolRemaining.Set(float64(len(ids)))
	log := logging.With("sampler")
	log.Debug().
		Int64("min_votes", minVotes).
		Int("size", len(ids)).
		Msg("sample pool built")
	return nil
}

// Remaining is the number of ids left in the pool, zero before the first draw.
func (s *Sampler) Remaining() int {
	return len(s.pool)
}

// Drawn is the number of ids handed out since the pool was built.
func (s *Sampler) Drawn() int {
	return s.drawn
}

// Threshold is the vote threshold the current pool was built with.
func (s *Sampler) Threshold() (int64, bool) {
	return s.threshold, s.built
}

// Reset forgets the pool; the next draw builds a fresh one.
func (s *Sampler) Reset() {
	s.pool = nil
	s.built = false
	s.threshold = 0
	s.drawn = 0
	metrics.PoolRemaining.Set(0)
}
