package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WorldwideGross returns the worldwide gross shown on the Box Office Mojo
// credits page of movieID, as displayed (e.g. "$47,680,966").
func (s *Scraper) WorldwideGross(ctx context.Context, movieID string) (string, error) {
	pageURL := s.boxOfficeBaseURL + "/title/" + url.PathEscape(movieID) + "/credits/"

	doc, err := s.getDocument(ctx, pageURL)
	if err == nil {
		var gross string
		gross, err = findWorldwideGross(doc)
		if err == nil {
			s.record("boxoffice", "Scraper.WorldwideGross", movieID, pageURL, nil)
			return gross, nil
		}
	}
	s.record("boxoffice", "Scraper.WorldwideGross", movieID, pageURL, err)
	return "", err
}

// findWorldwideGross looks for a span mentioning "Worldwide" and reads the
// money element of its enclosing div.
func findWorldwideGross(doc *goquery.Document) (string, error) {
	var gross string
	doc.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if !strings.Contains(span.Text(), "Worldwide") {
			return true
		}
		parent := span.ParentsFiltered("div").First()
		money := parent.Find(".money").First()
		if money.Length() == 0 {
			return true
		}
		gross = strings.TrimSpace(money.Text())
		return false
	})
	if gross == "" {
		return "", ErrNotFound
	}
	return gross, nil
}
