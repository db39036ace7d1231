package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	fw := NewFileWriter(path, 0)
	for _, l := range []string{"a;b", "1;2"} {
		if err := fw.WriteLine(l); err != nil {
			t.Fatalf("WriteLine() error = %v", err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if got, want := string(data), "a;b\n1;2\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFileWriterRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	fw := NewFileWriter(path, 2)
	for i := 0; i < 5; i++ {
		if err := fw.WriteLine(fmt.Sprintf("line%d", i)); err != nil {
			t.Fatalf("WriteLine() error = %v", err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	tests := []struct {
		file string
		want string
	}{
		{"out.csv", "line0\nline1\n"},
		{"out-1.csv", "line2\nline3\n"},
		{"out-2.csv", "line4\n"},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("reading %s: %v", tt.file, err)
		}
		if string(data) != tt.want {
			t.Errorf("%s = %q, want %q", tt.file, data, tt.want)
		}
	}
}

func TestFileWriterLazyCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.csv")
	fw := NewFileWriter(path, 0)
	if err := fw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should exist when nothing was written")
	}
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)
	if err := sw.WriteLine("x;y"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := buf.String(); !strings.HasPrefix(got, "x;y\n") {
		t.Errorf("output = %q, want line %q", got, "x;y")
	}
}
