// Package output provides the line-oriented CSV sinks conversions write to,
// including size-capped file rotation.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter writes lines to a file, rotating to numbered parts when a
// line-count cutoff is reached. The first part keeps the configured name;
// later parts are named <name>-<n><ext>. Files are created lazily on the
// first line so an empty conversion leaves no artifact.
type FileWriter struct {
	path   string
	cutoff int

	part  int
	lines int
	f     *os.File
	w     *bufio.Writer
}

// NewFileWriter returns a writer for path. A cutoff of zero disables
// rotation.
func NewFileWriter(path string, cutoff int) *FileWriter {
	return &FileWriter{path: path, cutoff: cutoff}
}

// partPath returns the file name of the current part.
func (fw *FileWriter) partPath() string {
	if fw.part == 0 {
		return fw.path
	}
	ext := filepath.Ext(fw.path)
	base := strings.TrimSuffix(fw.path, ext)
	return fmt.Sprintf("%s-%d%s", base, fw.part, ext)
}

// WriteLine appends one line, rotating first when the cutoff was reached.
func (fw *FileWriter) WriteLine(line string) error {
	if fw.w == nil {
		f, err := os.Create(fw.partPath())
		if err != nil {
			return fmt.Errorf("creating output %s: %w", fw.partPath(), err)
		}
		fw.f = f
		fw.w = bufio.NewWriter(f)
	}
	if _, err := fw.w.WriteString(line + "\n"); err != nil {
		return err
	}
	fw.lines++
	if fw.cutoff > 0 && fw.lines >= fw.cutoff {
		if err := fw.closeCurrent(); err != nil {
			return err
		}
		fw.part++
		fw.lines = 0
	}
	return nil
}

func (fw *FileWriter) closeCurrent() error {
	if fw.w == nil {
		return nil
	}
	if err := fw.w.Flush(); err != nil {
		fw.f.Close()
		return err
	}
	err := fw.f.Close()
	fw.f, fw.w = nil, nil
	return err
}

// Close flushes and closes the current part.
func (fw *FileWriter) Close() error {
	return fw.closeCurrent()
}

// StreamWriter writes lines to any io.Writer, typically stdout. It never
// rotates.
type StreamWriter struct {
	w *bufio.Writer
}

// NewStreamWriter returns a writer over w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: bufio.NewWriter(w)}
}

// WriteLine appends one line.
func (sw *StreamWriter) WriteLine(line string) error {
	_, err := sw.w.WriteString(line + "\n")
	return err
}

// Close flushes buffered lines.
func (sw *StreamWriter) Close() error {
	return sw.w.Flush()
}
