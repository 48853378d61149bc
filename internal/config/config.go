package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rohmanhakim/movie-sampler/internal/build"
	"github.com/rohmanhakim/movie-sampler/internal/store"
	"github.com/rohmanhakim/movie-sampler/pkg/urlutil"
)

// EnvPrefix marks the environment variables that override file values,
// e.g. MOVIE_SAMPLER_DATA_DIR overrides data_dir.
const EnvPrefix = "MOVIE_SAMPLER_"

type Config struct {
	//===============
	// Datasets
	//===============
	// Directory holding the downloaded archives and the extracted files
	dataDir string
	// Base URL the title.<name>.tsv.gz archives are downloaded from
	datasetsBaseURL string
	// Maximum time of a single dataset download
	downloadTimeout time.Duration
	// User agent sent with dataset downloads
	userAgent string

	//===============
	// Sampling
	//===============
	// Default minimum vote count for sampled titles. Zero keeps every title.
	minVotes int64
	// Seed of the pool shuffle. Zero picks a time based seed.
	randomSeed int64
	// How many filtered metadata views stay cached at once
	viewCacheSize int
	// How filtered views are cached, see store.CachePolicy
	cachePolicy store.CachePolicy

	//===============
	// Scraping
	//===============
	// Maximum time of a single scrape request
	scrapeTimeout time.Duration
	// User agent sent to the scraped sites
	scrapeUserAgent string
	// Number of "load more" review pages followed after the first one
	loadMore int
	// Site roots of the scraped pages
	imdbBaseURL      string
	boxOfficeBaseURL string

	//===============
	// Observability
	//===============
	// Minimum log level: trace, debug, info, warn, error
	logLevel string
	// Log output format: json or console
	logFormat string
	// When set, metrics are written to this file at exit
	metricsFile string
}

type configDTO struct {
	DataDir          string        `koanf:"data_dir"`
	DatasetsBaseURL  string        `koanf:"datasets_base_url"`
	DownloadTimeout  time.Duration `koanf:"download_timeout"`
	UserAgent        string        `koanf:"user_agent"`
	MinVotes         int64         `koanf:"min_votes"`
	RandomSeed       int64         `koanf:"random_seed"`
	ViewCacheSize    int           `koanf:"view_cache_size"`
	CachePolicy      string        `koanf:"cache_policy"`
	ScrapeTimeout    time.Duration `koanf:"scrape_timeout"`
	ScrapeUserAgent  string        `koanf:"scrape_user_agent"`
	LoadMore         *int          `koanf:"load_more"`
	IMDbBaseURL      string        `koanf:"imdb_base_url"`
	BoxOfficeBaseURL string        `koanf:"box_office_base_url"`
	LogLevel         string        `koanf:"log_level"`
	LogFormat        string        `koanf:"log_format"`
	MetricsFile      string        `koanf:"metrics_file"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	cfg := WithDefault()

	// Only override when a non-zero value is provided
	if dto.DataDir != "" {
		cfg.dataDir = dto.DataDir
	}
	if dto.DatasetsBaseURL != "" {
		cfg.datasetsBaseURL = dto.DatasetsBaseURL
	}
	if dto.DownloadTimeout != 0 {
		cfg.downloadTimeout = dto.DownloadTimeout
	}
	if dto.UserAgent != "" {
		cfg.userAgent = dto.UserAgent
	}
	// Zero is meaningful for these two, so the DTO value is used as-is
	cfg.minVotes = dto.MinVotes
	cfg.randomSeed = dto.RandomSeed
	if dto.ViewCacheSize != 0 {
		cfg.viewCacheSize = dto.ViewCacheSize
	}
	if dto.CachePolicy != "" {
		cfg.cachePolicy = store.CachePolicy(dto.CachePolicy)
	}
	if dto.ScrapeTimeout != 0 {
		cfg.scrapeTimeout = dto.ScrapeTimeout
	}
	if dto.ScrapeUserAgent != "" {
		cfg.scrapeUserAgent = dto.ScrapeUserAgent
	}
	if dto.LoadMore != nil {
		cfg.loadMore = *dto.LoadMore
	}
	if dto.IMDbBaseURL != "" {
		cfg.imdbBaseURL = dto.IMDbBaseURL
	}
	if dto.BoxOfficeBaseURL != "" {
		cfg.boxOfficeBaseURL = dto.BoxOfficeBaseURL
	}
	if dto.LogLevel != "" {
		cfg.logLevel = dto.LogLevel
	}
	if dto.LogFormat != "" {
		cfg.logFormat = dto.LogFormat
	}
	cfg.metricsFile = dto.MetricsFile

	return cfg.Build()
}

// Load reads the YAML (or JSON) file at path, applies MOVIE_SAMPLER_*
// environment overrides and fills the rest with defaults. An empty path
// skips the file layer.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(key string) string {
		return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto configDTO
	if err := k.Unmarshal("", &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}
	return newConfigFromDTO(dto)
}

// WithConfigFile is Load for a mandatory file.
func WithConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("%w: empty path", ErrFileDoesNotExist)
	}
	return Load(path)
}

// WithDefault creates a new Config with default values for all fields.
func WithDefault() *Config {
	defaultConfig := Config{
		dataDir:          "temp",
		datasetsBaseURL:  "https://datasets.imdbws.com",
		downloadTimeout:  60 * time.Second,
		userAgent:        build.UserAgent(),
		minVotes:         0,
		randomSeed:       0,
		viewCacheSize:    store.DefaultViewCacheSize,
		cachePolicy:      store.CachePerThreshold,
		scrapeTimeout:    30 * time.Second,
		scrapeUserAgent:  DefaultScrapeUserAgent,
		loadMore:         5,
		imdbBaseURL:      "https://www.imdb.com",
		boxOfficeBaseURL: "https://www.boxofficemojo.com",
		logLevel:         "info",
		logFormat:        "console",
		metricsFile:      "",
	}
	return &defaultConfig
}

// DefaultScrapeUserAgent is a desktop browser agent; the scraped sites
// serve reduced pages to unknown clients.
const DefaultScrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

func (c *Config) WithDataDir(dir string) *Config {
	c.dataDir = dir
	return c
}

func (c *Config) WithDatasetsBaseURL(baseURL string) *Config {
	c.datasetsBaseURL = baseURL
	return c
}

func (c *Config) WithDownloadTimeout(timeout time.Duration) *Config {
	c.downloadTimeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMinVotes(minVotes int64) *Config {
	c.minVotes = minVotes
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithViewCacheSize(size int) *Config {
	c.viewCacheSize = size
	return c
}

func (c *Config) WithCachePolicy(policy store.CachePolicy) *Config {
	c.cachePolicy = policy
	return c
}

func (c *Config) WithScrapeTimeout(timeout time.Duration) *Config {
	c.scrapeTimeout = timeout
	return c
}

func (c *Config) WithScrapeUserAgent(agent string) *Config {
	c.scrapeUserAgent = agent
	return c
}

func (c *Config) WithLoadMore(pages int) *Config {
	c.loadMore = pages
	return c
}

func (c *Config) WithIMDbBaseURL(baseURL string) *Config {
	c.imdbBaseURL = baseURL
	return c
}

func (c *Config) WithBoxOfficeBaseURL(baseURL string) *Config {
	c.boxOfficeBaseURL = baseURL
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.logLevel = level
	return c
}

func (c *Config) WithLogFormat(format string) *Config {
	c.logFormat = format
	return c
}

func (c *Config) WithMetricsFile(path string) *Config {
	c.metricsFile = path
	return c
}

func (c *Config) Build() (Config, error) {
	if strings.TrimSpace(c.dataDir) == "" {
		return Config{}, fmt.Errorf("%w: dataDir cannot be empty", ErrInvalidConfig)
	}
	for name, baseURL := range map[string]*string{
		"datasetsBaseUrl":  &c.datasetsBaseURL,
		"imdbBaseUrl":      &c.imdbBaseURL,
		"boxOfficeBaseUrl": &c.boxOfficeBaseURL,
	} {
		canonical, err := urlutil.ParseBaseURL(*baseURL)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, name, err.Error())
		}
		*baseURL = canonical
	}
	if c.downloadTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: downloadTimeout must be positive", ErrInvalidConfig)
	}
	if c.scrapeTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: scrapeTimeout must be positive", ErrInvalidConfig)
	}
	if c.loadMore < 0 {
		return Config{}, fmt.Errorf("%w: loadMore cannot be negative", ErrInvalidConfig)
	}
	if c.viewCacheSize < 1 {
		return Config{}, fmt.Errorf("%w: viewCacheSize must be at least 1", ErrInvalidConfig)
	}
	if _, err := store.ParseCachePolicy(string(c.cachePolicy)); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	switch strings.ToLower(c.logFormat) {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("%w: logFormat must be json or console, got %q", ErrInvalidConfig, c.logFormat)
	}

	return *c, nil
}

func (c Config) DataDir() string {
	return c.dataDir
}

func (c Config) DatasetsBaseURL() string {
	return c.datasetsBaseURL
}

func (c Config) DownloadTimeout() time.Duration {
	return c.downloadTimeout
}

func (c Config) UserAgent() string {
	return c.userAgent
}

func (c Config) MinVotes() int64 {
	return c.minVotes
}

func (c Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c Config) ViewCacheSize() int {
	return c.viewCacheSize
}

func (c Config) CachePolicy() store.CachePolicy {
	return c.cachePolicy
}

func (c Config) ScrapeTimeout() time.Duration {
	return c.scrapeTimeout
}

func (c Config) ScrapeUserAgent() string {
	return c.scrapeUserAgent
}

func (c Config) LoadMore() int {
	return c.loadMore
}

func (c Config) IMDbBaseURL() string {
	return c.imdbBaseURL
}

func (c Config) BoxOfficeBaseURL() string {
	return c.boxOfficeBaseURL
}

func (c Config) LogLevel() string {
	return c.logLevel
}

func (c Config) LogFormat() string {
	return c.logFormat
}

func (c Config) MetricsFile() string {
	return c.metricsFile
}
