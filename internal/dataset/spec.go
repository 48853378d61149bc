package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

/*
Cache layout
- One working directory holds every artifact
- Per dataset: exactly one compressed archive and one decompressed file
- File names derive only from the dataset name, so reruns find earlier downloads
*/

type Name string

const (
	Ratings Name = "ratings"
	Basics  Name = "basics"
	Crew    Name = "crew"
)

const DefaultBaseURL = "https://datasets.imdbws.com"

// Spec identifies where a dataset is fetched from and where it is cached.
// It is immutable once built.
type Spec struct {
	name          Name
	remoteURL     string
	archivePath   string
	extractedPath string
}

func NewSpec(name Name, remoteURL, archivePath, extractedPath string) Spec {
	return Spec{
		name:          name,
		remoteURL:     remoteURL,
		archivePath:   archivePath,
		extractedPath: extractedPath,
	}
}

func (s Spec) Name() Name {
	return s.name
}

func (s Spec) RemoteURL() string {
	return s.remoteURL
}

func (s Spec) ArchivePath() string {
	return s.archivePath
}

func (s Spec) ExtractedPath() string {
	return s.extractedPath
}

// Dir is the cache directory holding both artifacts.
func (s Spec) Dir() string {
	return filepath.Dir(s.archivePath)
}

// ArchiveName returns the deterministic archive file name, e.g. title.ratings.tsv.gz.
func ArchiveName(name Name) string {
	return fmt.Sprintf("title.%s.tsv.gz", name)
}

// Catalog holds the Spec of every supported dataset.
type Catalog struct {
	specs map[Name]Spec
}

// NewCatalog builds the catalog of ratings, basics and crew rooted at dataDir,
// downloading from baseURL.
func NewCatalog(dataDir string, baseURL string) Catalog {
	baseURL = strings.TrimRight(baseURL, "/")
	specs := make(map[Name]Spec, 3)
	for _, name := range []Name{Ratings, Basics, Crew} {
		archive := ArchiveName(name)
		specs[name] = NewSpec(
			name,
			baseURL+"/"+archive,
			filepath.Join(dataDir, archive),
			filepath.Join(dataDir, strings.TrimSuffix(archive, ".gz")),
		)
	}
	return Catalog{specs: specs}
}

// Spec returns the spec registered under name.
func (c Catalog) Spec(name Name) (Spec, error) {
	spec, ok := c.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return spec, nil
}

// MustSpec is Spec for the built-in names, panicking on anything else.
func (c Catalog) MustSpec(name Name) Spec {
	spec, err := c.Spec(name)
	if err != nil {
		panic(err)
	}
	return spec
}

// Specs returns all specs in a stable order: ratings, basics, crew.
func (c Catalog) Specs() []Spec {
	specs := make([]Spec, 0, len(c.specs))
	for _, name := range []Name{Ratings, Basics, Crew} {
		if spec, ok := c.specs[name]; ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

// ParseName validates a user supplied dataset name.
func ParseName(s string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(s))) {
	case Ratings:
		return Ratings, nil
	case Basics:
		return Basics, nil
	case Crew:
		return Crew, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, s)
	}
}
