package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rohmanhakim/movie-sampler/pkg/failure"
)

// EnsureDir check if a given directory plus the following path exist, then create one if not
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	targetPath := []string{dir}
	targetPath = append(targetPath, path...)

	fullDir := filepath.Join(targetPath...)
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      fullDir,
		}
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// WriteAtomic streams content produced by write into a temporary file next to
// path and renames it into place once write returns without error.
// Readers never observe a partially written file at path.
//
// Errors returned by write are passed through unchanged so callers can keep
// their own classification.
func WriteAtomic(path string, write func(w io.Writer) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteError,
			Path:      path,
		}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	counter := &countingWriter{w: tmp}
	if err := write(counter); err != nil {
		return counter.n, err
	}

	if err := tmp.Sync(); err != nil {
		return counter.n, &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteError,
			Path:      path,
		}
	}
	if err := tmp.Close(); err != nil {
		return counter.n, &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteError,
			Path:      path,
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return counter.n, &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseRenameError,
			Path:      path,
		}
	}
	committed = true
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		return n, &FileError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteError,
		}
	}
	return n, err
}
