package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/logging"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/internal/metrics"
	"github.com/rohmanhakim/movie-sampler/pkg/fileutil"
	"github.com/rohmanhakim/movie-sampler/pkg/hashutil"
	"golang.org/x/sync/singleflight"
)

/*
Responsibilities
- Download a dataset archive when it is missing from the cache directory
- Decompress the archive when the extracted file is missing
- Classify transport and status failures

Fetch Semantics
- Each artifact is produced at most once; present artifacts cause no I/O
- Artifacts are written to a temporary file and renamed into place
- Concurrent first calls for one dataset share a single download
- One caller canceling does not fail the others
- Network calls are bounded by the http.Client timeout

The fetcher never parses content; it only moves bytes to disk.
*/

type DatasetFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
	group        singleflight.Group
}

func NewDatasetFetcher(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
) *DatasetFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &DatasetFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

// EnsureLocal guarantees both artifacts of spec exist and returns the
// extracted file path.
//
// The shared download is detached from any single caller's cancellation and
// is bounded by the http.Client timeout instead. A caller whose ctx ends
// returns ctx.Err() while the others keep waiting.
func (f *DatasetFetcher) EnsureLocal(ctx context.Context, spec dataset.Spec) (string, error) {
	flight := context.WithoutCancel(ctx)
	ch := f.group.DoChan(spec.ExtractedPath(), func() (any, error) {
		return nil, f.ensure(flight, spec)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			f.recordFetchError("DatasetFetcher.EnsureLocal", spec, res.Err)
			return "", res.Err
		}
	}
	return spec.ExtractedPath(), nil
}

func (f *DatasetFetcher) ensure(ctx context.Context, spec dataset.Spec) error {
	if err := fileutil.EnsureDir(spec.Dir()); err != nil {
		return &FetchError{
			Message: err.Error(),
			Cause:   ErrCauseStorage,
			Err:     err,
		}
	}

	if !fileutil.Exists(spec.ArchivePath()) {
		if fetchErr := f.download(ctx, spec); fetchErr != nil {
			return fetchErr
		}
	}

	if !fileutil.Exists(spec.ExtractedPath()) {
		if err := f.extract(spec); err != nil {
			return err
		}
	}
	return nil
}

func (f *DatasetFetcher) download(ctx context.Context, spec dataset.Spec) *FetchError {
	log := logging.With("fetcher")
	log.Info().
		Str("dataset", string(spec.Name())).
		Str("url", spec.RemoteURL()).
		Msgf("Downloading %s", dataset.ArchiveName(spec.Name()))

	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.RemoteURL(), nil)
	if err != nil {
		return &FetchError{
			Message: fmt.Sprintf("failed to create request: %v", err),
			Cause:   ErrCauseNetworkFailure,
			URL:     spec.RemoteURL(),
			Err:     err,
		}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(spec.RemoteURL(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metadataSink.RecordFetch(spec.RemoteURL(), resp.StatusCode, time.Since(startTime), 0)
		return &FetchError{
			Message:    http.StatusText(resp.StatusCode),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Cause:      ErrCauseBadStatus,
			URL:        spec.RemoteURL(),
			StatusCode: resp.StatusCode,
		}
	}

	written, err := fileutil.WriteAtomic(spec.ArchivePath(), func(w io.Writer) error {
		if _, err := io.Copy(w, resp.Body); err != nil {
			var fileErr *fileutil.FileError
			if errors.As(err, &fileErr) {
				return err
			}
			return classifyTransportError(spec.RemoteURL(), err)
		}
		return nil
	})
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return fetchErr
		}
		return &FetchError{
			Message: err.Error(),
			Cause:   ErrCauseStorage,
			URL:     spec.RemoteURL(),
			Err:     err,
		}
	}

	duration := time.Since(startTime)
	f.metadataSink.RecordFetch(spec.RemoteURL(), resp.StatusCode, duration, written)
	metrics.DatasetDownloads.WithLabelValues(string(spec.Name())).Inc()
	metrics.DatasetDownloadBytes.WithLabelValues(string(spec.Name())).Add(float64(written))

	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrDataset, string(spec.Name())),
		metadata.NewAttr(metadata.AttrURL, spec.RemoteURL()),
		metadata.NewAttr(metadata.AttrSizeBytes, strconv.FormatInt(written, 10)),
	}
	if checksum, err := hashutil.HashFile(spec.ArchivePath(), hashutil.HashAlgoBLAKE3); err == nil {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrChecksum, checksum))
	} else {
		log.Warn().Err(err).Str("dataset", string(spec.Name())).Msg("archive checksum unavailable")
	}
	f.metadataSink.RecordArtifact(metadata.ArtifactArchive, spec.ArchivePath(), attrs)
	return nil
}

func (f *DatasetFetcher) extract(spec dataset.Spec) error {
	log := logging.With("fetcher")
	log.Info().
		Str("dataset", string(spec.Name())).
		Msgf("Extracting %s", dataset.ArchiveName(spec.Name()))

	archive, err := os.Open(spec.ArchivePath())
	if err != nil {
		return &FetchError{
			Message: err.Error(),
			Cause:   ErrCauseStorage,
			Err:     err,
		}
	}
	defer archive.Close()

	written, err := fileutil.WriteAtomic(spec.ExtractedPath(), func(w io.Writer) error {
		gz, err := gzip.NewReader(archive)
		if err != nil {
			return &FetchError{
				Message: fmt.Sprintf("open gzip stream %s: %v", spec.ArchivePath(), err),
				Cause:   ErrCauseDecompress,
				Err:     err,
			}
		}
		defer gz.Close()

		if _, err := io.Copy(w, gz); err != nil {
			var fileErr *fileutil.FileError
			if errors.As(err, &fileErr) {
				return err
			}
			return &FetchError{
				Message: fmt.Sprintf("decompress %s: %v", spec.ArchivePath(), err),
				Cause:   ErrCauseDecompress,
				Err:     err,
			}
		}
		return nil
	})
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return fetchErr
		}
		return &FetchError{
			Message: err.Error(),
			Cause:   ErrCauseStorage,
			Err:     err,
		}
	}

	metrics.DatasetExtractions.WithLabelValues(string(spec.Name())).Inc()
	f.metadataSink.RecordArtifact(
		metadata.ArtifactExtracted,
		spec.ExtractedPath(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrDataset, string(spec.Name())),
			metadata.NewAttr(metadata.AttrSizeBytes, strconv.FormatInt(written, 10)),
		},
	)
	return nil
}

func (f *DatasetFetcher) recordFetchError(callerMethod string, spec dataset.Spec, err error) {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return
	}
	metrics.FetchErrors.WithLabelValues(string(spec.Name()), string(fetchErr.Cause)).Inc()

	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrDataset, string(spec.Name())),
		metadata.NewAttr(metadata.AttrURL, spec.RemoteURL()),
	}
	if fetchErr.StatusCode != 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(fetchErr.StatusCode)))
	}
	f.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		callerMethod,
		mapFetchErrorToMetadataCause(fetchErr),
		err.Error(),
		attrs,
	)
}

func classifyTransportError(url string, err error) *FetchError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{
			Message:   fmt.Sprintf("request timed out: %v", err),
			Retryable: true,
			Cause:     ErrCauseTimeout,
			URL:       url,
			Err:       err,
		}
	}
	return &FetchError{
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Cause:     ErrCauseNetworkFailure,
		URL:       url,
		Err:       err,
	}
}
