package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/normalize"
	"github.com/rohmanhakim/movie-sampler/internal/sampler"
	"github.com/rohmanhakim/movie-sampler/internal/store"
	"github.com/spf13/cobra"
)

var (
	sampleCount = 1
	loadMore    = -1
)

var ErrMovieNotFound = errors.New("movie id not found")

var fetchCmd = &cobra.Command{
	Use:   "fetch [dataset...]",
	Short: "Download and extract datasets into the data directory",
	Long: `Download and extract IMDb datasets into the data directory.
With no arguments all datasets (ratings, basics, crew) are fetched.
Datasets that are already present are left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(*activeConfig)

		specs := rt.catalog.Specs()
		if len(args) > 0 {
			specs = specs[:0]
			for _, arg := range args {
				name, err := dataset.ParseName(arg)
				if err != nil {
					return err
				}
				specs = append(specs, rt.catalog.MustSpec(name))
			}
		}

		for _, spec := range specs {
			path, err := rt.fetcher.EnsureLocal(cmd.Context(), spec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", spec.Name(), path)
		}
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw unique random movie ids",
	Long: `Draw unique random movie ids from titles with at least --min-votes votes.
Ids are printed one per line. When fewer ids than requested remain, the
remaining ids are printed and the command fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleCount < 0 {
			return fmt.Errorf("-n must not be negative, got %d", sampleCount)
		}
		rt := newRuntime(*activeConfig)

		startTime := time.Now()
		ids, err := rt.engine.Draw(cmd.Context(), sampleCount, activeConfig.MinVotes())
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		remaining, drawn := rt.engine.Remaining()
		rt.recorder.RecordFinalSampleStats(drawn, remaining, time.Since(startTime))

		if errors.Is(err, sampler.ErrPoolExhausted) {
			return fmt.Errorf("drew %d of %d ids: %w", len(ids), sampleCount, err)
		}
		return err
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <movie-id>",
	Short: "Print the merged metadata of one title as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(*activeConfig)

		row, ok, err := rt.engine.GetMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrMovieNotFound, args[0])
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(newMetadataView(row))
	},
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <movie-id>",
	Short: "Print the normalized user reviews of one title",
	Long: `Fetch the user reviews of one title, following up to --load-more
additional pages, and print each normalized review on its own line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(*activeConfig)

		pages := activeConfig.LoadMore()
		if loadMore >= 0 {
			pages = loadMore
		}

		reviews, err := rt.scraper().Reviews(cmd.Context(), args[0], pages)
		if err != nil {
			return err
		}
		for _, review := range reviews {
			fmt.Fprintln(cmd.OutOrStdout(), review)
		}
		return nil
	},
}

var boxOfficeCmd = &cobra.Command{
	Use:   "boxoffice <movie-id>",
	Short: "Print the worldwide gross of one title",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt := newRuntime(*activeConfig)

		gross, err := rt.scraper().WorldwideGross(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), gross)
		return nil
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [text...]",
	Short: "Normalize text for embedding models",
	Long: `Strip emoji, links and markup from text and collapse whitespace.
With arguments, each argument is normalized on its own. Without arguments,
every line of stdin is normalized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			for _, text := range normalize.Texts(args) {
				fmt.Fprintln(cmd.OutOrStdout(), text)
			}
			return nil
		}
		return normalizeLines(cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func normalizeLines(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		fmt.Fprintln(w, normalize.Text(scanner.Text()))
	}
	return scanner.Err()
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleCount, "count", "n", 1, "number of ids to draw")
	reviewsCmd.Flags().IntVar(&loadMore, "load-more", -1, "additional review pages to follow (-1 uses the configured value)")
}

// metadataView is the JSON shape of a merged row. Keys follow the
// dataset column names; null cells are emitted as null.
type metadataView struct {
	MovieID        string   `json:"movie_id"`
	AverageRating  *float64 `json:"averageRating"`
	NumVotes       *int64   `json:"numVotes"`
	TitleType      *string  `json:"titleType"`
	PrimaryTitle   *string  `json:"primaryTitle"`
	OriginalTitle  *string  `json:"originalTitle"`
	IsAdult        *string  `json:"isAdult"`
	StartYear      *string  `json:"startYear"`
	EndYear        *string  `json:"endYear"`
	RuntimeMinutes *string  `json:"runtimeMinutes"`
	Genres         []string `json:"genres"`
	Directors      []string `json:"directors"`
	Writers        []string `json:"writers"`
}

func newMetadataView(row store.Row) metadataView {
	return metadataView{
		MovieID:        row.MovieID,
		AverageRating:  row.AverageRating,
		NumVotes:       row.NumVotes,
		TitleType:      row.TitleType,
		PrimaryTitle:   row.PrimaryTitle,
		OriginalTitle:  row.OriginalTitle,
		IsAdult:        row.IsAdult,
		StartYear:      row.StartYear,
		EndYear:        row.EndYear,
		RuntimeMinutes: row.RuntimeMinutes,
		Genres:         row.GenreList(),
		Directors:      row.DirectorIDs(),
		Writers:        row.WriterIDs(),
	}
}
