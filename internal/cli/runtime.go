package cmd

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rohmanhakim/movie-sampler/internal/config"
	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/engine"
	"github.com/rohmanhakim/movie-sampler/internal/fetcher"
	"github.com/rohmanhakim/movie-sampler/internal/loader"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/scraper"
	"github.com/rohmanhakim/movie-sampler/internal/store"
)

// runtime holds the components of one command invocation. Every
// invocation gets its own run id so its metadata events can be grouped.
type runtime struct {
	cfg      config.Config
	recorder *metadata.Recorder
	catalog  dataset.Catalog
	fetcher  *fetcher.DatasetFetcher
	engine   *engine.Engine
}

func newRuntime(cfg config.Config) *runtime {
	recorder := metadata.NewRecorder(uuid.NewString())
	catalog := dataset.NewCatalog(cfg.DataDir(), cfg.DatasetsBaseURL())

	datasetFetcher := fetcher.NewDatasetFetcher(
		&recorder,
		&http.Client{Timeout: cfg.DownloadTimeout()},
		cfg.UserAgent(),
	)

	log := logging.With("loader")
	l := loader.New(datasetFetcher, &recorder, loader.WithSkipFunc(func(rowErr loader.RowError) {
		log.Debug().
			Str("dataset", string(rowErr.Dataset)).
			Int("line", rowErr.Line).
			Err(rowErr.Err).
			Msg("skipping malformed row")
	}))

	st := store.New(l, catalog, &recorder,
		store.WithCachePolicy(cfg.CachePolicy()),
		store.WithViewCacheSize(cfg.ViewCacheSize()),
	)

	return &runtime{
		cfg:      cfg,
		recorder: &recorder,
		catalog:  catalog,
		fetcher:  datasetFetcher,
		engine:   engine.New(st, cfg.RandomSeed()),
	}
}

func (r *runtime) scraper() *scraper.Scraper {
	return scraper.New(r.recorder,
		scraper.WithHTTPClient(&http.Client{Timeout: r.cfg.ScrapeTimeout()}),
		scraper.WithUserAgent(r.cfg.ScrapeUserAgent()),
		scraper.WithIMDbBaseURL(r.cfg.IMDbBaseURL()),
		scraper.WithBoxOfficeBaseURL(r.cfg.BoxOfficeBaseURL()),
	)
}
