// Package fileutil handles input discovery and transparent decompression
// for conversion runs.
package fileutil

import (
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// inputExtensions lists the file suffixes a directory scan picks up.
var inputExtensions = []string{".xml", ".xml.gz", ".xml.xz", ".xml.zst"}

// IsInput reports whether a file name looks like a convertible document.
func IsInput(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range inputExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Discover expands a mixed list of files and directories into a sorted list
// of input documents. Files are taken as given; directories are walked and
// filtered by extension.
func Discover(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsInput(d.Name()) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", p, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// readCloser chains a decompressing reader with the closers beneath it.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open opens one input document, transparently decompressing .gz, .xz and
// .zst files by extension.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip input %s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case strings.HasSuffix(strings.ToLower(path), ".xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening xz input %s: %w", path, err)
		}
		return &readCloser{Reader: xr, closers: []io.Closer{f}}, nil
	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd input %s: %w", path, err)
		}
		closeDecoder := closerFunc(func() error {
			zr.Close()
			return nil
		})
		return &readCloser{Reader: zr, closers: []io.Closer{closeDecoder, f}}, nil
	default:
		return f, nil
	}
}
