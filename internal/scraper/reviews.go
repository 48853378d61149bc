package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/normalize"
)

const (
	reviewArticleSelector = "article.user-review-item"
	reviewBodySelector    = "div.ipc-html-content-inner-div"
	legacyReviewSelector  = "div.review-container div.text"
	loadMoreSelector      = "div.load-more-data[data-key]"
)

// Reviews returns the normalized user review bodies of movieID. Besides the
// first page it follows up to loadMore "load more" pages; a failing
// follow-up page ends pagination without failing the call.
func (s *Scraper) Reviews(ctx context.Context, movieID string, loadMore int) ([]string, error) {
	pageURL := s.imdbBaseURL + "/title/" + url.PathEscape(movieID) + "/reviews"

	doc, err := s.getDocument(ctx, pageURL)
	s.record("reviews", "Scraper.Reviews", movieID, pageURL, err)
	if err != nil {
		return nil, err
	}

	bodies := extractReviews(doc)
	for i := 0; i < loadMore; i++ {
		key, ok := doc.Find(loadMoreSelector).First().Attr("data-key")
		if !ok || key == "" {
			break
		}
		nextURL := pageURL + "/_ajax?paginationKey=" + url.QueryEscape(key)
		doc, err = s.getDocument(ctx, nextURL)
		s.record("reviews", "Scraper.Reviews", movieID, nextURL, err)
		if err != nil {
			log := logging.With("scraper")
			log.Warn().
				Err(err).
				Str("movie_id", movieID).
				Int("page", i+2).
				Msg("review pagination stopped")
			break
		}
		bodies = append(bodies, extractReviews(doc)...)
	}
	return bodies, nil
}

func extractReviews(doc *goquery.Document) []string {
	var bodies []string
	doc.Find(reviewArticleSelector).Each(func(_ int, article *goquery.Selection) {
		body := article.Find(reviewBodySelector).First()
		if body.Length() == 0 {
			return
		}
		bodies = append(bodies, normalize.Text(body.Text()))
	})
	doc.Find(legacyReviewSelector).Each(func(_ int, body *goquery.Selection) {
		if text := strings.TrimSpace(body.Text()); text != "" {
			bodies = append(bodies, normalize.Text(text))
		}
	})
	return bodies
}
