package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
)

/*
Responsibilities
- Fetch public title pages for one movie id
- Extract review bodies and the worldwide gross with CSS selectors

Scrape Semantics
- One GET per page, bounded by the client timeout
- Only 200 responses are parsed
- Nothing is retried or cached
*/

const (
	DefaultIMDbBaseURL      = "https://www.imdb.com"
	DefaultBoxOfficeBaseURL = "https://www.boxofficemojo.com"
	DefaultTimeout          = 30 * time.Second
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
)

type Option func(*Scraper)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.httpClient = client
	}
}

func WithUserAgent(userAgent string) Option {
	return func(s *Scraper) {
		s.userAgent = userAgent
	}
}

func WithIMDbBaseURL(baseURL string) Option {
	return func(s *Scraper) {
		s.imdbBaseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithBoxOfficeBaseURL(baseURL string) Option {
	return func(s *Scraper) {
		s.boxOfficeBaseURL = strings.TrimRight(baseURL, "/")
	}
}

type Scraper struct {
	metadataSink     metadata.MetadataSink
	httpClient       *http.Client
	userAgent        string
	imdbBaseURL      string
	boxOfficeBaseURL string
}

func New(metadataSink metadata.MetadataSink, opts ...Option) *Scraper {
	s := &Scraper{
		metadataSink:     metadataSink,
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		userAgent:        DefaultUserAgent,
		imdbBaseURL:      DefaultIMDbBaseURL,
		boxOfficeBaseURL: DefaultBoxOfficeBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getDocument fetches pageURL and parses it when the answer is 200.
func (s *Scraper) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ScrapeError{
			Message: err.Error(),
			Cause:   ErrCauseRequest,
			URL:     pageURL,
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.metadataSink.RecordFetch(pageURL, resp.StatusCode, time.Since(startTime), 0)
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, classifyTransportError(pageURL, err)
		}
		return nil, &ScrapeError{
			Message: fmt.Sprintf("parse html: %v", err),
			Cause:   ErrCauseParse,
			URL:     pageURL,
			Err:     err,
		}
	}
	s.metadataSink.RecordFetch(pageURL, resp.StatusCode, time.Since(startTime), resp.ContentLength)
	return doc, nil
}

func (s *Scraper) record(target, callerMethod, movieID, pageURL string, err error) {
	metrics.ScrapeRequests.WithLabelValues(target, outcomeOf(err)).Inc()
	if err == nil {
		return
	}
	s.metadataSink.RecordError(
		time.Now(),
		"scraper",
		callerMethod,
		mapScrapeErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrMovieID, movieID),
			metadata.NewAttr(metadata.AttrURL, pageURL),
		},
	)
}

func classifyTransportError(pageURL string, err error) *ScrapeError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ScrapeError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseTimeout,
			URL:       pageURL,
			Err:       err,
		}
	}
	return &ScrapeError{
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseRequest,
		URL:       pageURL,
		Err:       err,
	}
}
