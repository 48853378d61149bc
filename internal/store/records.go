package store

// Source rows as they appear in the three dumps. Column lists double as the
// loader's selection.

type ratingsRecord struct {
	TConst        string   `csv:"tconst"`
	AverageRating *float64 `csv:"averageRating"`
	NumVotes      *int64   `csv:"numVotes"`
}

var ratingsColumns = []string{"tconst", "averageRating", "numVotes"}

type basicsRecord struct {
	TConst         string  `csv:"tconst"`
	TitleType      *string `csv:"titleType"`
	PrimaryTitle   *string `csv:"primaryTitle"`
	OriginalTitle  *string `csv:"originalTitle"`
	IsAdult        *string `csv:"isAdult"`
	StartYear      *string `csv:"startYear"`
	EndYear        *string `csv:"endYear"`
	RuntimeMinutes *string `csv:"runtimeMinutes"`
	Genres         *string `csv:"genres"`
}

var basicsColumns = []string{
	"tconst",
	"titleType",
	"primaryTitle",
	"originalTitle",
	"isAdult",
	"startYear",
	"endYear",
	"runtimeMinutes",
	"genres",
}

type crewRecord struct {
	TConst    string  `csv:"tconst"`
	Directors *string `csv:"directors"`
	Writers   *string `csv:"writers"`
}

var crewColumns = []string{"tconst", "directors", "writers"}
