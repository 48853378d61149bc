package store

// records is the read side of a loaded table. *loader.Table satisfies it,
// so merging reads the loader's rows in place.
type records[T any] interface {
	Len() int
	Row(i int) T
}

// merge left-joins basics and crew onto ratings by tconst. Ratings decide
// which titles exist and in what order; for duplicate keys the first
// occurrence wins on every side.
func merge(ratings records[ratingsRecord], basics records[basicsRecord], crew records[crewRecord]) []Row {
	basicsByID := make(map[string]int, basics.Len())
	for i := 0; i < basics.Len(); i++ {
		id := basics.Row(i).TConst
		if _, dup := basicsByID[id]; !dup {
			basicsByID[id] = i
		}
	}
	crewByID := make(map[string]int, crew.Len())
	for i := 0; i < crew.Len(); i++ {
		id := crew.Row(i).TConst
		if _, dup := crewByID[id]; !dup {
			crewByID[id] = i
		}
	}

	seen := make(map[string]struct{}, ratings.Len())
	rows := make([]Row, 0, ratings.Len())
	for n := 0; n < ratings.Len(); n++ {
		r := ratings.Row(n)
		if _, dup := seen[r.TConst]; dup {
			continue
		}
		seen[r.TConst] = struct{}{}

		row := Row{
			MovieID:       r.TConst,
			AverageRating: r.AverageRating,
			NumVotes:      r.NumVotes,
		}
		if i, ok := basicsByID[r.TConst]; ok {
			b := basics.Row(i)
			row.TitleType = b.TitleType
			row.PrimaryTitle = b.PrimaryTitle
			row.OriginalTitle = b.OriginalTitle
			row.IsAdult = b.IsAdult
			row.StartYear = b.StartYear
			row.EndYear = b.EndYear
			row.RuntimeMinutes = b.RuntimeMinutes
			row.Genres = b.Genres
		}
		if i, ok := crewByID[r.TConst]; ok {
			c := crew.Row(i)
			row.Directors = c.Directors
			row.Writers = c.Writers
		}
		rows = append(rows, row)
	}
	return rows
}
