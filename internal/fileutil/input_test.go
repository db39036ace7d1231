package fileutil

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func TestIsInput(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"data.xml", true},
		{"DATA.XML", true},
		{"data.xml.gz", true},
		{"data.xml.xz", true},
		{"data.xml.zst", true},
		{"data.csv", false},
		{"data.xml.bak", false},
		{"xml", false},
	}
	for _, tt := range tests {
		if got := IsInput(tt.name); got != tt.want {
			t.Errorf("IsInput(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xml", "a.xml", "skip.txt", "c.xml.gz"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("<R/>"), 0644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}
	loose := filepath.Join(dir, "skip.txt")

	got, err := Discover([]string{dir, loose})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.xml"),
		filepath.Join(dir, "b.xml"),
		filepath.Join(dir, "c.xml.gz"),
		loose,
	}
	if len(got) != len(want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Discover()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDiscoverMissingInput(t *testing.T) {
	if _, err := Discover([]string{"/no/such/path.xml"}); err == nil {
		t.Fatal("Discover() should fail on a missing input")
	}
}

func TestOpenTransparentDecompression(t *testing.T) {
	const payload = "<Root><V>1</V></Root>"
	dir := t.TempDir()

	write := func(name string, compress func(w io.Writer) io.WriteCloser) string {
		t.Helper()
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		defer f.Close()
		if compress == nil {
			if _, err := f.Write([]byte(payload)); err != nil {
				t.Fatalf("writing %s: %v", name, err)
			}
			return path
		}
		w := compress(f)
		if _, err := w.Write([]byte(payload)); err != nil {
			t.Fatalf("compressing %s: %v", name, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("closing compressor for %s: %v", name, err)
		}
		return path
	}

	paths := map[string]string{
		"plain": write("doc.xml", nil),
		"gzip": write("doc.xml.gz", func(w io.Writer) io.WriteCloser {
			return gzip.NewWriter(w)
		}),
		"xz": write("doc.xml.xz", func(w io.Writer) io.WriteCloser {
			xw, err := xz.NewWriter(w)
			if err != nil {
				t.Fatalf("xz writer: %v", err)
			}
			return xw
		}),
		"zstd": write("doc.xml.zst", func(w io.Writer) io.WriteCloser {
			zw, err := zstd.NewWriter(w)
			if err != nil {
				t.Fatalf("zstd writer: %v", err)
			}
			return zw
		}),
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(data) != payload {
				t.Errorf("content = %q, want %q", data, payload)
			}
		})
	}
}
