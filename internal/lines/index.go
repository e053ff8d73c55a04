// Package lines provides random-access line reading over the parallel text
// files of a dataset split. An Index scans a file exactly once at open time,
// recording the byte offset and character length of every line; afterwards
// individual lines are fetched by zero-based index with positioned reads.
//
// The index is immutable after Open and performs no shared-state mutation on
// reads, so a single Index may serve concurrent callers.
package lines

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Index is a precomputed line index over one text file.
type Index struct {
	path    string
	file    *os.File
	offsets []int64 // byte offset of each line start
	sizes   []int   // byte length of each line, trailing newline excluded
	lengths []int   // character (rune) count of each line, newline excluded
}

// Open scans the file once and builds its line index. The file handle stays
// open for positioned reads until Close is called.
func Open(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open line index: %w", err)
	}

	ix := &Index{path: path, file: f}
	reader := bufio.NewReader(f)
	var offset int64
	for {
		raw, err := reader.ReadString('\n')
		if raw != "" {
			content := strings.TrimSuffix(raw, "\n")
			ix.offsets = append(ix.offsets, offset)
			ix.sizes = append(ix.sizes, len(content))
			ix.lengths = append(ix.lengths, utf8.RuneCountInString(content))
			offset += int64(len(raw))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
	}
	return ix, nil
}

// Len returns the number of lines in the file.
func (ix *Index) Len() int {
	return len(ix.offsets)
}

// Path returns the indexed file's path.
func (ix *Index) Path() string {
	return ix.path
}

// Line returns the line at the zero-based index i, without its trailing
// newline. The read is positioned (pread) and does not move any shared
// file cursor.
func (ix *Index) Line(i int) (string, error) {
	if i < 0 || i >= len(ix.offsets) {
		return "", fmt.Errorf("line %d out of range [0,%d) in %s", i, len(ix.offsets), ix.path)
	}
	buf := make([]byte, ix.sizes[i])
	if _, err := ix.file.ReadAt(buf, ix.offsets[i]); err != nil && err != io.EOF {
		return "", fmt.Errorf("read line %d of %s: %w", i, ix.path, err)
	}
	return string(buf), nil
}

// Lengths returns the per-line character counts in file order. The slice is
// shared with the index and must be treated as read-only; it is the sort key
// feed for length-aware sampling.
func (ix *Index) Lengths() []int {
	return ix.lengths
}

// MinLength returns the smallest line length, or 0 for an empty file.
func (ix *Index) MinLength() int {
	if len(ix.lengths) == 0 {
		return 0
	}
	min := ix.lengths[0]
	for _, n := range ix.lengths[1:] {
		if n < min {
			min = n
		}
	}
	return min
}

// Close releases the underlying file handle.
func (ix *Index) Close() error {
	if ix.file == nil {
		return nil
	}
	return ix.file.Close()
}
