package store

import "strings"

// Row is one merged title. Nil pointer fields are null: either the source
// cell held the null token or the title is missing from basics or crew.
type Row struct {
	MovieID        string
	AverageRating  *float64
	NumVotes       *int64
	TitleType      *string
	PrimaryTitle   *string
	OriginalTitle  *string
	IsAdult        *string
	StartYear      *string
	EndYear        *string
	RuntimeMinutes *string
	Genres         *string
	Directors      *string
	Writers        *string
}

// GenreList splits the comma separated genres.
func (r Row) GenreList() []string {
	return splitList(r.Genres)
}

// DirectorIDs splits the comma separated director name ids.
func (r Row) DirectorIDs() []string {
	return splitList(r.Directors)
}

// WriterIDs splits the comma separated writer name ids.
func (r Row) WriterIDs() []string {
	return splitList(r.Writers)
}

// meetsThreshold reports whether the row survives a minVotes filter.
func (r Row) meetsThreshold(minVotes int64) bool {
	if minVotes <= 0 {
		return true
	}
	return r.NumVotes != nil && *r.NumVotes >= minVotes
}

func (r Row) clone() Row {
	out := r
	out.AverageRating = clonePtr(r.AverageRating)
	out.NumVotes = clonePtr(r.NumVotes)
	out.TitleType = clonePtr(r.TitleType)
	out.PrimaryTitle = clonePtr(r.PrimaryTitle)
	out.OriginalTitle = clonePtr(r.OriginalTitle)
	out.IsAdult = clonePtr(r.IsAdult)
	out.StartYear = clonePtr(r.StartYear)
	out.EndYear = clonePtr(r.EndYear)
	out.RuntimeMinutes = clonePtr(r.RuntimeMinutes)
	out.Genres = clonePtr(r.Genres)
	out.Directors = clonePtr(r.Directors)
	out.Writers = clonePtr(r.Writers)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func splitList(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	parts := strings.Split(*s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
