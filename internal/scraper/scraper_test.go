package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"github.com/rohmanhakim/movie-sampler/internal/scraper"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorSink struct {
	metadata.NoopSink
	causes []metadata.ErrorCause
}

func (s *errorSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.causes = append(s.causes, cause)
}

const reviewsPage = `<html><body>
<article class="user-review-item">
  <div class="ipc-html-content-inner-div">A <b>GREAT</b> film &amp; cast 😀 https://spam.example/x</div>
</article>
<article class="user-review-item">
  <div class="other">no body here</div>
</article>
<article class="user-review-item">
  <div class="ipc-html-content-inner-div">
     Too   long.
  </div>
</article>
<div class="load-more-data" data-key="page-2"></div>
</body></html>`

const ajaxPage = `<div class="lister-item">
  <div class="review-container"><div class="content"><div class="text">Legacy   Review</div></div></div>
</div>
<div class="load-more-data" data-key="page-3"></div>`

func newReviewServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	ajaxHits := &atomic.Int32{}
	mux := http.NewServeMux()
	mux.HandleFunc("/title/tt0111161/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reviewsPage))
	})
	mux.HandleFunc("/title/tt0111161/reviews/_ajax", func(w http.ResponseWriter, r *http.Request) {
		ajaxHits.Add(1)
		switch r.URL.Query().Get("paginationKey") {
		case "page-2":
			w.Write([]byte(ajaxPage))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, ajaxHits
}

func TestReviews_FirstPageOnly(t *testing.T) {
	server, ajaxHits := newReviewServer(t)
	s := scraper.New(&metadata.NoopSink{}, scraper.WithIMDbBaseURL(server.URL))

	reviews, err := s.Reviews(context.Background(), "tt0111161", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"a great film & cast", "too long."}, reviews)
	assert.Zero(t, ajaxHits.Load())
}

func TestReviews_FollowsLoadMore(t *testing.T) {
	server, ajaxHits := newReviewServer(t)
	sink := &errorSink{}
	s := scraper.New(sink, scraper.WithIMDbBaseURL(server.URL))

	reviews, err := s.Reviews(context.Background(), "tt0111161", 5)
	require.NoError(t, err, "a failing follow-up page ends pagination quietly")

	assert.Equal(t, []string{"a great film & cast", "too long.", "legacy review"}, reviews)
	assert.Equal(t, int32(2), ajaxHits.Load(), "page-3 fails and stops the loop")
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseNetworkFailure}, sink.causes)
}

func TestReviews_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	s := scraper.New(&metadata.NoopSink{}, scraper.WithIMDbBaseURL(server.URL))

	_, err := s.Reviews(context.Background(), "tt0000000", 2)

	var httpErr *scraper.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, server.URL+"/title/tt0000000/reviews", httpErr.URL)
	assert.Equal(t, failure.SeverityFatal, httpErr.Severity())
}

func TestReviews_SendsUserAgent(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	s := scraper.New(&metadata.NoopSink{},
		scraper.WithIMDbBaseURL(server.URL+"/"),
		scraper.WithUserAgent("movie-sampler-test"),
	)
	reviews, err := s.Reviews(context.Background(), "tt1", 1)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Equal(t, "movie-sampler-test", agent.Load())
}

const creditsPage = `<html><body>
<div class="a-section">
  <div class="mojo-performance-summary-table">
    <div class="a-section a-spacing-none">
      <span class="a-size-small">Domestic (35.1%)</span>
      <span class="a-size-medium a-text-bold"><span class="money">$16,738,021</span></span>
    </div>
    <div class="a-section a-spacing-none">
      <span class="a-size-small">
        Worldwide
      </span>
      <span class="a-size-medium a-text-bold"><span class="money"> $47,680,966 </span></span>
    </div>
  </div>
</div>
</body></html>`

func TestWorldwideGross(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(creditsPage))
	}))
	defer server.Close()

	s := scraper.New(&metadata.NoopSink{}, scraper.WithBoxOfficeBaseURL(server.URL))
	before := testutil.ToFloat64(metrics.ScrapeRequests.WithLabelValues("boxoffice", "ok"))

	gross, err := s.WorldwideGross(context.Background(), "tt0111161")
	require.NoError(t, err)
	assert.Equal(t, "$47,680,966", gross)
	assert.Equal(t, "/title/tt0111161/credits/", path.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ScrapeRequests.WithLabelValues("boxoffice", "ok"))-before)
}

func TestWorldwideGross_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<div><span>Domestic</span><span class="money">$1</span></div><div><span>Worldwide</span></div>`))
	}))
	defer server.Close()

	sink := &errorSink{}
	s := scraper.New(sink, scraper.WithBoxOfficeBaseURL(server.URL))

	_, err := s.WorldwideGross(context.Background(), "tt1")
	assert.ErrorIs(t, err, scraper.ErrNotFound)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseContentInvalid}, sink.causes)
}

func TestWorldwideGross_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := scraper.New(&metadata.NoopSink{}, scraper.WithBoxOfficeBaseURL(server.URL))

	_, err := s.WorldwideGross(context.Background(), "tt1")
	var httpErr *scraper.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, failure.SeverityRecoverable, httpErr.Severity())
	assert.True(t, strings.HasSuffix(httpErr.URL, "/title/tt1/credits/"))
}

func TestWorldwideGross_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	s := scraper.New(&metadata.NoopSink{},
		scraper.WithBoxOfficeBaseURL(server.URL),
		scraper.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}),
	)

	_, err := s.WorldwideGross(context.Background(), "tt1")
	var scrapeErr *scraper.ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, scraper.ErrCauseTimeout, scrapeErr.Cause)
	assert.False(t, errors.Is(err, scraper.ErrNotFound))
}
