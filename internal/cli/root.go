package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rohmanhakim/movie-sampler/internal/build"
	"github.com/rohmanhakim/movie-sampler/internal/config"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"github.com/rohmanhakim/movie-sampler/internal/store"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
	"github.com/spf13/cobra"
)

var (
	cfgFile         string
	dataDir         string
	datasetsBaseURL string
	downloadTimeout string
	userAgent       string
	minVotes        int64
	randomSeed      int64
	cachePolicy     string
	logLevel        string
	logFormat       string
	metricsFile     string

	// resolved by the root PersistentPreRunE
	activeConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "movie-sampler",
	Short: "Sample unique IMDb titles and collect their metadata.",
	Long: `movie-sampler downloads the public IMDb datasets (ratings, basics, crew),
caches them locally, merges them into one metadata table and draws unique
random movie ids from it, optionally restricted to a minimum vote count.

It can also fetch user reviews and worldwide box office figures for a title
and normalize free text for embedding models.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}
		logging.Init(logging.Config{
			Level:  cfg.LogLevel(),
			Format: cfg.LogFormat(),
			Output: cmd.ErrOrStderr(),
		})
		activeConfig = &cfg
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if flushErr := flushMetrics(); flushErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", flushErr)
	}
	if err != nil {
		if !failure.IsFatal(err) {
			fmt.Fprintln(os.Stderr, "The failure looks transient; running the command again may succeed.")
		}
		stop()
		os.Exit(1)
	}
}

// ExecuteForTest runs the command tree with args, writing command output to
// stdout and logs to stderr.
func ExecuteForTest(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.ExecuteContext(ctx)
	if flushErr := flushMetrics(); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}

func flushMetrics() error {
	if activeConfig == nil || activeConfig.MetricsFile() == "" {
		return nil
	}
	if err := metrics.WriteTextfile(activeConfig.MetricsFile()); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, YAML or JSON (e.g., /home/myuser/movie-sampler.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for downloaded datasets (default \"temp\")")
	rootCmd.PersistentFlags().StringVar(&datasetsBaseURL, "datasets-base-url", "", "base URL of the IMDb dataset archives")
	rootCmd.PersistentFlags().StringVar(&downloadTimeout, "download-timeout", "", "timeout of a dataset download (e.g., 60s)")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for dataset downloads")
	rootCmd.PersistentFlags().Int64Var(&minVotes, "min-votes", -1, "minimum vote count of sampled titles (-1 uses the configured value)")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed of the sample shuffle (0 uses the configured value or the current time)")
	rootCmd.PersistentFlags().StringVar(&cachePolicy, "cache-policy", "", "filtered view caching: per-threshold or first-build")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or console")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")

	rootCmd.AddCommand(fetchCmd, sampleCmd, metadataCmd, reviewsCmd, boxOfficeCmd, normalizeCmd, versionCmd)
}

// InitConfigWithError layers the config file and MOVIE_SAMPLER_* environment
// variables, then applies explicitly set flags on top, returning any errors.
func InitConfigWithError() (config.Config, error) {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		if cfgFile != "" {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
		return config.Config{}, err
	}

	// Override with CLI flag values where provided
	configBuilder := &loaded

	if dataDir != "" {
		configBuilder = configBuilder.WithDataDir(dataDir)
	}

	if datasetsBaseURL != "" {
		configBuilder = configBuilder.WithDatasetsBaseURL(datasetsBaseURL)
	}

	if downloadTimeout != "" {
		timeout, err := time.ParseDuration(downloadTimeout)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: download-timeout: %s", config.ErrInvalidConfig, err.Error())
		}
		configBuilder = configBuilder.WithDownloadTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if minVotes >= 0 {
		configBuilder = configBuilder.WithMinVotes(minVotes)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if cachePolicy != "" {
		configBuilder = configBuilder.WithCachePolicy(store.CachePolicy(cachePolicy))
	}

	if logLevel != "" {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	if logFormat != "" {
		configBuilder = configBuilder.WithLogFormat(logFormat)
	}

	if metricsFile != "" {
		configBuilder = configBuilder.WithMetricsFile(metricsFile)
	}

	return configBuilder.Build()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "movie-sampler %s (built %s)\n", build.FullVersion(), build.BuildTime)
		return nil
	},
}

func ResetFlags() {
	cfgFile = ""
	dataDir = ""
	datasetsBaseURL = ""
	downloadTimeout = ""
	userAgent = ""
	minVotes = -1
	randomSeed = 0
	cachePolicy = ""
	logLevel = ""
	logFormat = ""
	metricsFile = ""
	sampleCount = 1
	loadMore = -1
	activeConfig = nil
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetDataDirForTest(dir string) {
	dataDir = dir
}

func SetDatasetsBaseURLForTest(baseURL string) {
	datasetsBaseURL = baseURL
}

func SetDownloadTimeoutForTest(timeout string) {
	downloadTimeout = timeout
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetMinVotesForTest(votes int64) {
	minVotes = votes
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetCachePolicyForTest(policy string) {
	cachePolicy = policy
}

func SetLogLevelForTest(level string) {
	logLevel = level
}

func SetMetricsFileForTest(path string) {
	metricsFile = path
}
