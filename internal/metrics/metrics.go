package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector of this process. A dedicated registry keeps
// the Go runtime collectors out of the textfile export.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Fetcher
	DatasetDownloads = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_downloads_total",
			Help: "Total number of dataset archives downloaded",
		},
		[]string{"dataset"},
	)

	DatasetDownloadBytes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_download_bytes_total",
			Help: "Total bytes written while downloading dataset archives",
		},
		[]string{"dataset"},
	)

	DatasetExtractions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_extractions_total",
			Help: "Total number of dataset archives decompressed",
		},
		[]string{"dataset"},
	)

	FetchErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_fetch_errors_total",
			Help: "Total number of failed dataset fetches by cause",
		},
		[]string{"dataset", "cause"},
	)

	// Loader
	RowsLoaded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_rows_loaded_total",
			Help: "Total number of rows decoded from dataset files",
		},
		[]string{"dataset"},
	)

	RowsSkipped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_rows_skipped_total",
			Help: "Total number of malformed rows skipped while loading",
		},
		[]string{"dataset"},
	)

	// Store
	MetadataRows = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "metadata_rows",
			Help: "Number of rows in the merged metadata table",
		},
	)

	MetadataViewBuilds = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "metadata_view_builds_total",
			Help: "Total number of filtered metadata views computed",
		},
	)

	// Sampler
	PoolBuilds = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "sample_pool_builds_total",
			Help: "Total number of sample pools built",
		},
	)

	PoolDraws = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "sample_pool_draws_total",
			Help: "Total number of movie ids drawn from the sample pool",
		},
	)

	PoolRemaining = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "sample_pool_remaining",
			Help: "Number of movie ids left in the sample pool",
		},
	)

	// Scrapers
	ScrapeRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_requests_total",
			Help: "Total number of scrape requests by target and outcome",
		},
		[]string{"target", "outcome"},
	)
)

// WriteTextfile writes the current state of Registry to path in the
// node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
