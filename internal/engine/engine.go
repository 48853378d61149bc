package engine

import (
	"context"
	"sync"

	"github.com/rohmanhakim/movie-sampler/internal/sampler"
	"github.com/rohmanhakim/movie-sampler/internal/store"
)

// Engine owns the metadata store and the sample pool of one run. All methods
// are safe for concurrent use; they are serialised by a single mutex so the
// two caches are never built twice.
type Engine struct {
	mu      sync.Mutex
	store   *store.Store
	sampler *sampler.Sampler
}

// New wires a sampler on top of st. seed follows sampler.New.
func New(st *store.Store, seed int64) *Engine {
	return &Engine{
		store:   st,
		sampler: sampler.New(st, seed),
	}
}

func (e *Engine) LoadMetadata(ctx context.Context, minVotes int64) (store.Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LoadMetadata(ctx, minVotes)
}

func (e *Engine) GetMetadata(ctx context.Context, movieID string) (store.Row, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.GetMetadata(ctx, movieID)
}

func (e *Engine) RandomMovieID(ctx context.Context, minVotes int64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampler.RandomMovieID(ctx, minVotes)
}

// Draw takes up to n ids in one critical section. When the pool runs out
// it returns the ids drawn so far together with sampler.ErrPoolExhausted.
func (e *Engine) Draw(ctx context.Context, n int, minVotes int64) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, max(n, 0))
	for len(ids) < n {
		if err := ctx.Err(); err != nil {
			return ids, err
		}
		id, err := e.sampler.RandomMovieID(ctx, minVotes)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Remaining reports the ids left in the pool and how many were drawn.
func (e *Engine) Remaining() (remaining int, drawn int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sampler.Remaining(), e.sampler.Drawn()
}

// ResetPool discards the sample pool. Cached metadata is kept.
func (e *Engine) ResetPool() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampler.Reset()
}
