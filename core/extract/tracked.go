package extract

import (
	"strings"

	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/schema"
)

// TrackedSchema is the subset of schema fields selected for output, in
// schema order, together with the structural records extraction needs.
type TrackedSchema struct {
	fields  []schema.Field
	index   map[string]int
	dict    map[string]schema.Property
	ns      map[string]string
	parents map[string]bool
}

// NewTrackedSchema applies the positive (selected) or negative (discarded)
// XPath filter to a schema. An entry matching a field exactly selects that
// one field; an entry naming an ancestor expands to every descendant field.
// Entries matching nothing are returned as warnings and dropped. The two
// filters are mutually exclusive, and an empty result is a configuration
// error: a run tracking nothing can produce nothing.
func NewTrackedSchema(s *schema.Schema, selected, discarded []string) (*TrackedSchema, []string, error) {
	if len(selected) > 0 && len(discarded) > 0 {
		return nil, nil, errors.NewConfiguration("filters",
			"positive and negative filters cannot be combined")
	}

	var warnings []string
	keep := make([]bool, len(s.Fields))

	switch {
	case len(selected) > 0:
		for _, entry := range selected {
			if !markMatches(s, entry, keep) {
				warnings = append(warnings, entry)
			}
		}
	case len(discarded) > 0:
		for i := range keep {
			keep[i] = true
		}
		drop := make([]bool, len(s.Fields))
		for _, entry := range discarded {
			if !markMatches(s, entry, drop) {
				warnings = append(warnings, entry)
			}
		}
		for i := range keep {
			keep[i] = keep[i] && !drop[i]
		}
	default:
		for i := range keep {
			keep[i] = true
		}
	}

	t := &TrackedSchema{
		index:   make(map[string]int),
		dict:    s.Dictionary,
		ns:      s.Namespaces,
		parents: make(map[string]bool),
	}
	for i, f := range s.Fields {
		if !keep[i] {
			continue
		}
		t.index[f.XPath] = len(t.fields)
		t.fields = append(t.fields, f)
	}
	if len(t.fields) == 0 {
		return nil, warnings, errors.NewConfiguration("filters", "tracked-field set is empty")
	}

	for _, f := range t.fields {
		for p := f.Parent; p != ""; p = parentElement(p) {
			t.parents[p] = true
		}
	}
	return t, warnings, nil
}

// markMatches flags every field selected by one filter entry and reports
// whether anything matched.
func markMatches(s *schema.Schema, entry string, marks []bool) bool {
	matched := false
	for i, f := range s.Fields {
		if f.XPath == entry {
			marks[i] = true
			return true
		}
		if schema.IsDescendant(f.XPath, entry) {
			marks[i] = true
			matched = true
		}
	}
	return matched
}

// parentElement strips the last dotted segment of an element XPath.
func parentElement(xpath string) string {
	if i := strings.LastIndex(xpath, "."); i >= 0 {
		return xpath[:i]
	}
	return ""
}

// Len returns the number of tracked fields, placeholders included.
func (t *TrackedSchema) Len() int {
	return len(t.fields)
}

// Field returns the tracked field at column i.
func (t *TrackedSchema) Field(i int) schema.Field {
	return t.fields[i]
}

// Index returns the column of the field with the given XPath, or -1.
func (t *TrackedSchema) Index(xpath string) int {
	if i, ok := t.index[xpath]; ok {
		return i
	}
	return -1
}

// XPaths returns every tracked XPath in column order.
func (t *TrackedSchema) XPaths() []string {
	out := make([]string, len(t.fields))
	for i := range t.fields {
		out[i] = t.fields[i].XPath
	}
	return out
}

// HeaderXPaths returns the tracked XPaths with placeholder columns
// suppressed, ready for the header line.
func (t *TrackedSchema) HeaderXPaths() []string {
	out := make([]string, 0, len(t.fields))
	for i := range t.fields {
		if t.fields[i].Placeholder {
			continue
		}
		out = append(out, t.fields[i].XPath)
	}
	return out
}

// IsTrackedParent reports whether xpath is a strict ancestor of at least
// one tracked field.
func (t *TrackedSchema) IsTrackedParent(xpath string) bool {
	return t.parents[xpath]
}

// Property returns the structural record of an element XPath.
func (t *TrackedSchema) Property(xpath string) (schema.Property, bool) {
	p, ok := t.dict[xpath]
	return p, ok
}

// Namespaces returns the alias-to-URI table of the underlying schema.
func (t *TrackedSchema) Namespaces() map[string]string {
	return t.ns
}

// chain returns the element XPaths strictly between a tracked parent and a
// field, direct parent included, innermost last. The second result is false
// when the field does not descend from the parent.
func (t *TrackedSchema) chain(parent string, f schema.Field) ([]string, bool) {
	if f.Parent == parent {
		return nil, true
	}
	if !schema.IsDescendant(f.Parent, parent) {
		return nil, false
	}
	rest := f.Parent[len(parent)+1:]
	var out []string
	prefix := parent
	for _, seg := range strings.Split(rest, ".") {
		prefix = prefix + "." + seg
		out = append(out, prefix)
	}
	return out, true
}

// chainAllSingle reports whether every intermediate between parent and f
// has single cardinality, making f reachable by short-circuit.
func (t *TrackedSchema) chainAllSingle(parent string, f schema.Field) bool {
	chain, related := t.chain(parent, f)
	if !related {
		return false
	}
	for _, x := range chain {
		p, ok := t.dict[x]
		if !ok || p.Cardinality.IsRepeated() {
			return false
		}
	}
	return true
}

// chainHasRepeated reports whether f descends from parent through at least
// one repeated intermediate.
func (t *TrackedSchema) chainHasRepeated(parent string, f schema.Field) bool {
	chain, related := t.chain(parent, f)
	if !related {
		return false
	}
	for _, x := range chain {
		if p, ok := t.dict[x]; ok && p.Cardinality.IsRepeated() {
			return true
		}
	}
	return false
}
