package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues("metrics-test"))
	metrics.RowsSkipped.WithLabelValues("metrics-test").Add(3)
	after := testutil.ToFloat64(metrics.RowsSkipped.WithLabelValues("metrics-test"))

	assert.Equal(t, before+3, after)
}

func TestWriteTextfile(t *testing.T) {
	metrics.PoolDraws.Inc()
	path := filepath.Join(t.TempDir(), "movie_sampler.prom")

	require.NoError(t, metrics.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sample_pool_draws_total")
}
