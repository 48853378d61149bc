package fetcher_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rohmanhakim/movie-sampler/internal/dataset"
	"github.com/rohmanhakim/movie-sampler/internal/fetcher"
	"github.com/rohmanhakim/movie-sampler/internal/metadata"
	"github.com/rohmanhakim/movie-sampler/pkg/failure"
	"github.com/rohmanhakim/movie-sampler/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	mu             sync.Mutex
	fetchEvents    []fetchEvent
	errorEvents    []errorEvent
	artifactEvents []artifactEvent
}

type fetchEvent struct {
	fetchUrl   string
	httpStatus int
	sizeBytes  int64
}

type errorEvent struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	attrs       []metadata.Attribute
}

type artifactEvent struct {
	kind  metadata.ArtifactKind
	path  string
	attrs []metadata.Attribute
}

func (m *mockMetadataSink) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchEvents = append(m.fetchEvents, fetchEvent{
		fetchUrl:   fetchUrl,
		httpStatus: httpStatus,
		sizeBytes:  sizeBytes,
	})
}

func (m *mockMetadataSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorEvents = append(m.errorEvents, errorEvent{
		packageName: packageName,
		action:      action,
		cause:       cause,
		attrs:       attrs,
	})
}

func (m *mockMetadataSink) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactEvents = append(m.artifactEvents, artifactEvent{kind: kind, path: path, attrs: attrs})
}

func (m *mockMetadataSink) RecordLoad(dataset string, rows int, skipped int, duration time.Duration) {
}

const ratingsTSV = "tconst\taverageRating\tnumVotes\ntt0000001\t5.7\t2100\ntt0000002\t5.6\t283\n"

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// newDatasetServer serves body for every request and counts hits.
func newDatasetServer(t *testing.T, status int, body []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server, hits
}

func ratingsSpec(t *testing.T, baseURL string) dataset.Spec {
	t.Helper()
	catalog := dataset.NewCatalog(filepath.Join(t.TempDir(), "cache"), baseURL)
	return catalog.MustSpec(dataset.Ratings)
}

func TestDatasetFetcher_EnsureLocal_DownloadsAndExtracts(t *testing.T) {
	archive := gzipBytes(t, ratingsTSV)
	server, hits := newDatasetServer(t, http.StatusOK, archive)
	spec := ratingsSpec(t, server.URL)

	sink := &mockMetadataSink{}
	f := fetcher.NewDatasetFetcher(sink, server.Client(), "movie-sampler-test")

	path, err := f.EnsureLocal(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, spec.ExtractedPath(), path)
	assert.Equal(t, int32(1), hits.Load())

	extracted, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ratingsTSV, string(extracted))

	stored, err := os.ReadFile(spec.ArchivePath())
	require.NoError(t, err)
	assert.Equal(t, archive, stored)

	entries, err := os.ReadDir(spec.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "exactly the archive and the extracted file")

	require.Len(t, sink.fetchEvents, 1)
	assert.Equal(t, http.StatusOK, sink.fetchEvents[0].httpStatus)
	assert.Equal(t, int64(len(archive)), sink.fetchEvents[0].sizeBytes)

	require.Len(t, sink.artifactEvents, 2)
	assert.Equal(t, metadata.ArtifactArchive, sink.artifactEvents[0].kind)
	wantChecksum, err := hashutil.HashBytes(archive, hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, wantChecksum, metadata.FindAttr(sink.artifactEvents[0].attrs, metadata.AttrChecksum))
	assert.Equal(t, metadata.ArtifactExtracted, sink.artifactEvents[1].kind)
	assert.Empty(t, sink.errorEvents)
}

func TestDatasetFetcher_EnsureLocal_Idempotent(t *testing.T) {
	server, hits := newDatasetServer(t, http.StatusOK, gzipBytes(t, ratingsTSV))
	spec := ratingsSpec(t, server.URL)
	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, server.Client(), "")

	first, err := f.EnsureLocal(context.Background(), spec)
	require.NoError(t, err)
	infoBefore, err := os.Stat(first)
	require.NoError(t, err)

	second, err := f.EnsureLocal(context.Background(), spec)
	require.NoError(t, err)
	infoAfter, err := os.Stat(second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load(), "second call must not hit the network")
	assert.Equal(t, infoBefore.ModTime(), infoAfter.ModTime(), "second call must not re-extract")
}

func TestDatasetFetcher_EnsureLocal_ExtractsExistingArchiveWithoutNetwork(t *testing.T) {
	server, hits := newDatasetServer(t, http.StatusOK, nil)
	spec := ratingsSpec(t, server.URL)
	require.NoError(t, os.MkdirAll(spec.Dir(), 0755))
	require.NoError(t, os.WriteFile(spec.ArchivePath(), gzipBytes(t, ratingsTSV), 0644))

	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, server.Client(), "")
	path, err := f.EnsureLocal(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, int32(0), hits.Load())
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ratingsTSV, string(content))
}

func TestDatasetFetcher_EnsureLocal_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{name: "not found", status: http.StatusNotFound, wantRetryable: false},
		{name: "forbidden", status: http.StatusForbidden, wantRetryable: false},
		{name: "server error", status: http.StatusServiceUnavailable, wantRetryable: true},
		{name: "too many requests", status: http.StatusTooManyRequests, wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newDatasetServer(t, tt.status, []byte("nope"))
			spec := ratingsSpec(t, server.URL)
			sink := &mockMetadataSink{}
			f := fetcher.NewDatasetFetcher(sink, server.Client(), "")

			_, err := f.EnsureLocal(context.Background(), spec)
			require.Error(t, err)

			var fetchErr *fetcher.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, fetcher.ErrCauseBadStatus, fetchErr.Cause)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, spec.RemoteURL(), fetchErr.URL)
			assert.Equal(t, tt.wantRetryable, fetchErr.IsRetryable())
			assert.Contains(t, err.Error(), spec.RemoteURL())

			_, statErr := os.Stat(spec.ArchivePath())
			assert.True(t, os.IsNotExist(statErr), "no archive may be cached after a failed download")

			require.Len(t, sink.errorEvents, 1)
			assert.Equal(t, metadata.CauseNetworkFailure, sink.errorEvents[0].cause)
			assert.Equal(t, "fetcher", sink.errorEvents[0].packageName)
		})
	}
}

func TestDatasetFetcher_EnsureLocal_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	spec := ratingsSpec(t, server.URL)
	client := &http.Client{Timeout: 20 * time.Millisecond}
	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, client, "")

	_, err := f.EnsureLocal(context.Background(), spec)
	require.Error(t, err)

	var fetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, fetcher.ErrCauseTimeout, fetchErr.Cause)
	assert.Equal(t, failure.SeverityRecoverable, fetchErr.Severity())
}

func TestDatasetFetcher_EnsureLocal_CorruptArchive(t *testing.T) {
	server, _ := newDatasetServer(t, http.StatusOK, []byte("definitely not gzip"))
	spec := ratingsSpec(t, server.URL)
	sink := &mockMetadataSink{}
	f := fetcher.NewDatasetFetcher(sink, server.Client(), "")

	_, err := f.EnsureLocal(context.Background(), spec)
	require.Error(t, err)

	var fetchErr *fetcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, fetcher.ErrCauseDecompress, fetchErr.Cause)
	assert.False(t, fetchErr.IsRetryable())

	_, statErr := os.Stat(spec.ExtractedPath())
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, sink.errorEvents, 1)
	assert.Equal(t, metadata.CauseContentInvalid, sink.errorEvents[0].cause)
}

func TestDatasetFetcher_EnsureLocal_SendsUserAgent(t *testing.T) {
	var gotAgent atomic.Value
	archive := gzipBytes(t, ratingsTSV)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.Header.Get("User-Agent"))
		w.Write(archive)
	}))
	defer server.Close()

	spec := ratingsSpec(t, server.URL)
	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, server.Client(), "movie-sampler/1.0")

	_, err := f.EnsureLocal(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "movie-sampler/1.0", gotAgent.Load())
}

func TestDatasetFetcher_EnsureLocal_ConcurrentCallersShareDownload(t *testing.T) {
	archive := gzipBytes(t, ratingsTSV)
	release := make(chan struct{})
	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write(archive)
	}))
	defer server.Close()

	spec := ratingsSpec(t, server.URL)
	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, server.Client(), "")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.EnsureLocal(context.Background(), spec)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestDatasetFetcher_EnsureLocal_CanceledCallerDoesNotFailOthers(t *testing.T) {
	archive := gzipBytes(t, ratingsTSV)
	release := make(chan struct{})
	hits := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write(archive)
	}))
	defer server.Close()

	spec := ratingsSpec(t, server.URL)
	f := fetcher.NewDatasetFetcher(&metadata.NoopSink{}, server.Client(), "")

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.EnsureLocal(ctx, spec)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)

	secondErr := make(chan error, 1)
	go func() {
		_, err := f.EnsureLocal(context.Background(), spec)
		secondErr <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), hits.Load())
	assert.FileExists(t, spec.ExtractedPath())
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &fetcher.FetchError{Cause: fetcher.ErrCauseNetworkFailure, Message: "request failed", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "network issues")
}
