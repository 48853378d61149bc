package metadata

/*
sampleStats
  - Represents a terminal, derived summary of a completed sampling run
  - Contains only aggregate counts and durations
  - Is recorded exactly once, by the command that drove the run
  - Must not influence sampling or caching
*/
type sampleStats struct {
	drawn      int
	remaining  int
	durationMs int64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

  - The failure does not map cleanly to any known category.

# CauseNetworkFailure

  - Transport failure, timeout or non-success status while talking to a
    dataset host or a scraped site.

# CauseContentInvalid

  - Content was fetched but could not be processed: corrupt gzip stream,
    missing columns, page without the expected element.

# CauseStorageFailure

  - Failure while writing into the local dataset cache.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseContentInvalid
	CauseStorageFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactArchive   ArtifactKind = "archive"
	ArtifactExtracted ArtifactKind = "extracted"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL        AttributeKey = "url"
	AttrDataset    AttributeKey = "dataset"
	AttrPath       AttributeKey = "path"
	AttrMovieID    AttributeKey = "movie_id"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrChecksum   AttributeKey = "checksum"
	AttrSizeBytes  AttributeKey = "size_bytes"
)

// FindAttr returns the value of the first attribute with key, or "".
func FindAttr(attrs []Attribute, key AttributeKey) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}
