package extract

import (
	"strings"
	"testing"

	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/schema"
)

func inferSchema(t *testing.T, doc string, opts schema.Options) *schema.Schema {
	t.Helper()
	s, err := schema.Infer(strings.NewReader(doc), opts)
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	return s
}

func TestNewTrackedSchema(t *testing.T) {
	s := inferSchema(t, `<R><A><X>1</X><Y>2</Y></A><B b="u">3</B></R>`,
		schema.Options{WithAttributes: true})
	// Full field set: R.A.X, R.A.Y, R.B, R.B@b

	tests := []struct {
		name      string
		selected  []string
		discarded []string
		want      []string
		warnings  int
	}{
		{
			name: "no filters keeps everything",
			want: []string{"R.A.X", "R.A.Y", "R.B", "R.B@b"},
		},
		{
			name:     "exact match selects one field",
			selected: []string{"R.A.Y"},
			want:     []string{"R.A.Y"},
		},
		{
			name:     "ancestor expands to descendants",
			selected: []string{"R.A"},
			want:     []string{"R.A.X", "R.A.Y"},
		},
		{
			name:     "exact leaf match excludes its attributes",
			selected: []string{"R.B"},
			want:     []string{"R.B"},
		},
		{
			name:     "selection order is schema order",
			selected: []string{"R.B", "R.A"},
			want:     []string{"R.A.X", "R.A.Y", "R.B"},
		},
		{
			name:     "unmatched entries are warned and dropped",
			selected: []string{"R.A", "R.Nope"},
			want:     []string{"R.A.X", "R.A.Y"},
			warnings: 1,
		},
		{
			name:      "discard removes an expansion",
			discarded: []string{"R.A"},
			want:      []string{"R.B", "R.B@b"},
		},
		{
			name:      "discard warning",
			discarded: []string{"R.Gone"},
			want:      []string{"R.A.X", "R.A.Y", "R.B", "R.B@b"},
			warnings:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracked, warnings, err := NewTrackedSchema(s, tt.selected, tt.discarded)
			if err != nil {
				t.Fatalf("NewTrackedSchema() error = %v", err)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d entries", warnings, tt.warnings)
			}
			got := tracked.XPaths()
			if len(got) != len(tt.want) {
				t.Fatalf("tracked = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("tracked[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNewTrackedSchemaErrors(t *testing.T) {
	s := inferSchema(t, `<R><A>1</A></R>`, schema.Options{})

	t.Run("filters are mutually exclusive", func(t *testing.T) {
		_, _, err := NewTrackedSchema(s, []string{"R.A"}, []string{"R.A"})
		if !errors.Is(err, errors.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("empty tracked set", func(t *testing.T) {
		_, _, err := NewTrackedSchema(s, []string{"R.Missing"}, nil)
		if !errors.Is(err, errors.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("discarding everything", func(t *testing.T) {
		_, _, err := NewTrackedSchema(s, nil, []string{"R"})
		if !errors.Is(err, errors.ErrConfiguration) {
			t.Errorf("error = %v, want ErrConfiguration", err)
		}
	})
}

func TestTrackedParents(t *testing.T) {
	s := inferSchema(t, `<R><A><B><X>1</X></B></A></R>`, schema.Options{})
	tracked, _, err := NewTrackedSchema(s, nil, nil)
	if err != nil {
		t.Fatalf("NewTrackedSchema() error = %v", err)
	}

	for _, p := range []string{"R", "R.A", "R.A.B"} {
		if !tracked.IsTrackedParent(p) {
			t.Errorf("IsTrackedParent(%q) = false, want true", p)
		}
	}
	if tracked.IsTrackedParent("R.A.B.X") {
		t.Error("a field is not its own parent")
	}
}

func TestHeaderXPathsSuppressesPlaceholders(t *testing.T) {
	var b strings.Builder
	b.WriteString("<R><Big>")
	for i := 0; i < 12; i++ {
		b.WriteString("<Item><V>1</V></Item>")
	}
	b.WriteString("</Big></R>")
	s := inferSchema(t, b.String(), schema.Options{Catalyst: true})

	tracked, _, err := NewTrackedSchema(s, nil, nil)
	if err != nil {
		t.Fatalf("NewTrackedSchema() error = %v", err)
	}
	if tracked.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (placeholder tracked)", tracked.Len())
	}
	header := tracked.HeaderXPaths()
	if len(header) != 1 || header[0] != "R.Big.Item.V" {
		t.Errorf("HeaderXPaths() = %v, want [R.Big.Item.V]", header)
	}
}
