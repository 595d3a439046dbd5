package source

import (
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andreiashu/pcodes"
)

// readCloser pairs a decompressing reader with the file it reads from.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a dataset file, decompressing it when the name ends in .gz or
// .bz2. When path has no such suffix but path+".bz2" exists, the compressed
// copy is read instead.
func Open(path string) (io.ReadCloser, error) {
	if !strings.HasSuffix(path, ".bz2") && !strings.HasSuffix(path, ".gz") {
		if _, err := os.Stat(path + ".bz2"); err == nil {
			path += ".bz2"
		}
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	switch {
	case strings.HasSuffix(path, ".bz2"):
		return &readCloser{Reader: bzip2.NewReader(fh), closers: []func() error{fh.Close}}, nil
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("creating gzip reader for %s: %w", path, err)
		}
		return &readCloser{Reader: gz, closers: []func() error{gz.Close, fh.Close}}, nil
	default:
		return fh, nil
	}
}

// File is a RecordSource reading an HXL dataset from disk.
type File struct {
	Path    string
	Options []HXLOption
}

// Records opens the file and parses it as HXL.
func (f File) Records() ([]pcodes.Record, error) {
	rc, err := Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	records, err := NewHXL(rc, f.Options...).Records()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return records, nil
}
