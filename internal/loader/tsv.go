package loader

import (
	"bufio"
	"io"
	"strings"
)

// NullToken is the literal the IMDb dumps use for a missing value.
const NullToken = `\N`

// tsvReader splits tab separated lines into records. The IMDb dumps use no
// quoting, so a quote is ordinary cell content. It satisfies csvutil.Reader.
//
// Null cells reach the decoder as blanks, which csvutil leaves as nil
// pointers. When keep is set the raw cells at those positions are copied
// out before blanking.
type tsvReader struct {
	r    *bufio.Reader
	line int
	keep []int
	kept []string
}

func newTSVReader(r io.Reader) *tsvReader {
	return &tsvReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// readError marks failures of the underlying stream, as opposed to a
// malformed record.
type readError struct {
	err error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

func (t *tsvReader) Read() ([]string, error) {
	for {
		line, err := t.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, &readError{err: err}
		}
		if line == "" && err == io.EOF {
			return nil, io.EOF
		}
		t.line++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}
		record := strings.Split(line, "\t")
		t.capture(record)
		for i, cell := range record {
			if cell == NullToken {
				record[i] = ""
			}
		}
		return record, nil
	}
}

func (t *tsvReader) capture(record []string) {
	if t.keep == nil {
		return
	}
	t.kept = make([]string, len(t.keep))
	for i, pos := range t.keep {
		if pos < len(record) {
			t.kept[i] = record[pos]
		}
	}
}

// Kept returns the raw cells of the last record, nil unless keep is set.
func (t *tsvReader) Kept() []string {
	return t.kept
}

// Line returns the 1-based number of the last line returned by Read.
func (t *tsvReader) Line() int {
	return t.line
}
