package schema

import (
	"io"
	"strings"

	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/sax"
)

// CatalystAttribute is the short name of the synthesized placeholder
// attribute granted to catalyst elements. The '#' keeps it out of the
// namespace of real attribute names, which may not contain one.
const CatalystAttribute = "#catalyst"

// DefaultCatalystThreshold is the repetition count at or above which an
// intermediate element becomes a catalyst candidate.
const DefaultCatalystThreshold = 10

// Options control a schema inference run.
type Options struct {
	// WithAttributes includes attributes in the catalog.
	WithAttributes bool
	// WithNamespaces keeps prefixed names in XPaths and records the
	// namespace table; otherwise local names are used throughout.
	WithNamespaces bool
	// Catalyst grants placeholder attributes to repeated intermediate
	// elements so the densest packing variant has rows to settle on.
	Catalyst bool
	// CatalystThreshold overrides DefaultCatalystThreshold when positive.
	CatalystThreshold int
	// Path names the template document in error messages.
	Path string
}

// Infer reads one template document and returns the inferred schema.
// Any failure surfaces as a StructureError: without a schema nothing
// downstream can proceed.
func Infer(r io.Reader, opts Options) (*Schema, error) {
	inf := NewInferrer(opts)
	if err := sax.Parse(r, inf); err != nil {
		var structErr *errors.StructureError
		if errors.As(err, &structErr) {
			return nil, err
		}
		return nil, &errors.StructureError{Path: opts.Path, Message: "template parse failure", Err: err}
	}
	return inf.Schema(), nil
}

// elemProps accumulates the structural record of one element XPath.
type elemProps struct {
	card  Cardinality
	typ   DataType
	count int64
}

// attrProps accumulates the record of one attribute of one element XPath.
// Attributes are kept in an ordered list per element, not a map: their
// document position drives optionality detection and output order.
type attrProps struct {
	name string
	card Cardinality
	typ  DataType
}

// Inferrer is the sax.Handler that performs single-pass schema inference.
type Inferrer struct {
	opts  Options
	graph *graph
	props map[string]*elemProps
	attrs map[string][]*attrProps
	ns    map[string]string

	stack []string
	// prevClosed holds, per depth, the tag sequence of the element that
	// closed last at that depth. Entries deeper than a closing element are
	// voided so sibling parent instances never see each other's children.
	prevClosed map[int][]string
	// seen holds, per depth, the child short names opened so far under the
	// current parent instance at that depth.
	seen map[int][]string

	text    strings.Builder
	hasText bool
}

// NewInferrer returns an Inferrer ready to receive parse events.
func NewInferrer(opts Options) *Inferrer {
	if opts.CatalystThreshold <= 0 {
		opts.CatalystThreshold = DefaultCatalystThreshold
	}
	return &Inferrer{opts: opts}
}

// StartDocument resets all inference state.
func (inf *Inferrer) StartDocument() error {
	inf.graph = newGraph()
	inf.props = make(map[string]*elemProps)
	inf.attrs = make(map[string][]*attrProps)
	inf.ns = make(map[string]string)
	inf.stack = inf.stack[:0]
	inf.prevClosed = make(map[int][]string)
	inf.seen = make(map[int][]string)
	inf.text.Reset()
	inf.hasText = false
	return nil
}

// StartElement validates the tag, grows the graph and updates cardinality,
// ordering and attribute records.
func (inf *Inferrer) StartElement(el sax.StartElement) error {
	if err := inf.validateShortName(el.Local); err != nil {
		return err
	}

	// Text seen so far belongs to the enclosing element: mixed content.
	inf.flushText()

	name := el.Local
	if inf.opts.WithNamespaces {
		name = el.Prefixed
		if el.URI != "" {
			alias := "{default}"
			if i := strings.Index(el.Prefixed, ":"); i > 0 {
				alias = el.Prefixed[:i]
			}
			inf.ns[alias] = el.URI
		}
	}

	parentNode := inf.graph.ensurePath(inf.stack)
	existed := parentNode.child(name) != nil
	parentNode.ensure(name)

	inf.stack = append(inf.stack, name)
	depth := len(inf.stack)
	xpath := strings.Join(inf.stack, ".")

	// Same short name already opened under this parent instance: repeated.
	repeated := false
	for _, s := range inf.seen[depth] {
		if s == name {
			repeated = true
			break
		}
	}
	inf.seen[depth] = append(inf.seen[depth], name)

	p := inf.props[xpath]
	if p == nil {
		p = &elemProps{card: OneToOne, typ: TypeUnknown}
		inf.props[xpath] = p
	}
	p.count++
	if repeated {
		p.card = p.card.Repeated()
	}

	inf.correctMisplacement(parentNode, name, existed, depth)

	if inf.opts.WithAttributes {
		inf.updateAttributes(xpath, el.Attrs)
	}
	return nil
}

// correctMisplacement repairs the graph order when an optional element shows
// up later than where the graph first placed it. If the sibling that closed
// just before the current one sits after it in the graph, that sibling is
// moved directly before the current element and marked optional.
func (inf *Inferrer) correctMisplacement(parentNode *node, name string, existed bool, depth int) {
	if !existed {
		return
	}
	prev := inf.prevClosed[depth]
	if len(prev) != depth {
		return
	}
	for i := 0; i < depth-1; i++ {
		if prev[i] != inf.stack[i] {
			return
		}
	}
	prevName := prev[depth-1]
	if prevName == name {
		return
	}
	pi := parentNode.indexOf(prevName)
	ci := parentNode.indexOf(name)
	if pi < 0 || ci < 0 || pi < ci {
		return
	}
	parentNode.moveBefore(prevName, name)
	prevXPath := strings.Join(prev, ".")
	if pp := inf.props[prevXPath]; pp != nil {
		pp.card = pp.card.Optional()
	}
}

// updateAttributes merges one element instance's attributes into the ordered
// per-element attribute list. First sight records everything as mandatory
// single with a sniffed type; later sights re-check types, insert newcomers
// as optional after the last matched position, and mark absentees optional.
func (inf *Inferrer) updateAttributes(xpath string, attrs []sax.Attr) {
	existing, known := inf.attrs[xpath]
	if !known {
		list := make([]*attrProps, 0, len(attrs))
		for _, a := range attrs {
			list = append(list, &attrProps{name: a.Name, card: OneToOne, typ: Sniff(strings.TrimSpace(a.Value))})
		}
		inf.attrs[xpath] = list
		return
	}

	present := make(map[string]bool, len(attrs))
	pos := -1
	for _, a := range attrs {
		present[a.Name] = true
		idx := -1
		for i, e := range existing {
			if e.name == a.Name {
				idx = i
				break
			}
		}
		if idx >= 0 {
			existing[idx].typ = Check(strings.TrimSpace(a.Value), existing[idx].typ)
			pos = idx
			continue
		}
		rec := &attrProps{name: a.Name, card: ZeroToOne, typ: Sniff(strings.TrimSpace(a.Value))}
		pos++
		existing = append(existing, nil)
		copy(existing[pos+1:], existing[pos:])
		existing[pos] = rec
	}
	for _, e := range existing {
		if !present[e.name] {
			e.card = e.card.Optional()
		}
	}
	inf.attrs[xpath] = existing
}

// Characters accumulates text content for the current element.
func (inf *Inferrer) Characters(data string) error {
	inf.text.WriteString(data)
	inf.hasText = true
	return nil
}

// EndElement sniffs the element's content type, marks children missing from
// this instance optional, and records the close for ordering checks.
func (inf *Inferrer) EndElement(string) error {
	depth := len(inf.stack)
	if depth == 0 {
		return errors.NewStructure(inf.opts.Path, "element close without a matching open")
	}
	xpath := strings.Join(inf.stack, ".")

	inf.flushText()

	// Graph children absent from this instance are optional.
	if n := inf.graph.at(inf.stack); n != nil {
		seenHere := inf.seen[depth+1]
		for _, childName := range n.childNames() {
			found := false
			for _, s := range seenHere {
				if s == childName {
					found = true
					break
				}
			}
			if !found {
				if cp := inf.props[xpath+"."+childName]; cp != nil {
					cp.card = cp.card.Optional()
				}
			}
		}
	}

	inf.prevClosed[depth] = append([]string(nil), inf.stack...)
	for d := range inf.prevClosed {
		if d > depth {
			delete(inf.prevClosed, d)
		}
	}
	for d := range inf.seen {
		if d > depth {
			delete(inf.seen, d)
		}
	}

	inf.stack = inf.stack[:depth-1]
	return nil
}

// EndDocument grants catalyst placeholders when requested.
func (inf *Inferrer) EndDocument() error {
	if len(inf.stack) != 0 {
		return errors.NewStructure(inf.opts.Path, "document ended with open elements")
	}
	if inf.opts.Catalyst {
		inf.deviseCatalysts()
	}
	return nil
}

// flushText folds accumulated text into the current element's type record.
func (inf *Inferrer) flushText() {
	if !inf.hasText {
		return
	}
	content := strings.TrimSpace(inf.text.String())
	inf.text.Reset()
	inf.hasText = false
	if content == "" || len(inf.stack) == 0 {
		return
	}
	xpath := strings.Join(inf.stack, ".")
	if p := inf.props[xpath]; p != nil {
		p.typ = Check(content, p.typ)
	}
}

// validateShortName rejects tag names carrying characters the dot-joined
// XPath encoding reserves.
func (inf *Inferrer) validateShortName(local string) error {
	for _, r := range []string{".", "@", "#", ":"} {
		if strings.Contains(local, r) {
			return errors.NewStructure(inf.opts.Path,
				"tag <"+local+"> contains '"+r+"' characters, which are forbidden")
		}
	}
	return nil
}

// deviseCatalysts walks the finished graph and grants a placeholder
// attribute to every intermediate element, root excluded, that either
// repeats at least threshold times or has no intermediate descendant that
// does. The placeholder sits first in the element's attribute list.
func (inf *Inferrer) deviseCatalysts() {
	k := int64(inf.opts.CatalystThreshold)

	var maxDescendant func(n *node, xpath string) int64
	maxDescendant = func(n *node, xpath string) int64 {
		var max int64
		for _, c := range n.children {
			cx := xpath + "." + c.name
			if len(c.children) > 0 {
				if p := inf.props[cx]; p != nil && p.count > max {
					max = p.count
				}
				if m := maxDescendant(c, cx); m > max {
					max = m
				}
			}
		}
		return max
	}

	inf.graph.walk(func(xpath string, n *node) bool {
		if len(n.children) == 0 || !strings.Contains(xpath, ".") {
			return true
		}
		p := inf.props[xpath]
		if p == nil {
			return true
		}
		if p.count >= k || maxDescendant(n, xpath) < k {
			rec := &attrProps{name: CatalystAttribute, card: OneToOne, typ: TypeString}
			inf.attrs[xpath] = append([]*attrProps{rec}, inf.attrs[xpath]...)
		}
		return true
	})
}

// Schema flattens the finished graph into the ordered field catalog.
// Leaves become fields followed by their attributes; intermediates are
// skipped unless they carry mixed content or attributes.
func (inf *Inferrer) Schema() *Schema {
	s := &Schema{Dictionary: make(map[string]Property)}
	if inf.opts.WithNamespaces && len(inf.ns) > 0 {
		s.Namespaces = make(map[string]string, len(inf.ns))
		for k, v := range inf.ns {
			s.Namespaces[k] = v
		}
	}

	var rec func(n *node, prefix string)
	rec = func(n *node, prefix string) {
		for _, c := range n.children {
			xpath := c.name
			if prefix != "" {
				xpath = prefix + "." + c.name
			}
			p := inf.props[xpath]
			if p == nil {
				continue
			}
			leaf := len(c.children) == 0

			nature := IntermediateElement
			if leaf {
				nature = LeafElement
			}
			s.Dictionary[xpath] = Property{Cardinality: p.card, Type: p.typ, Nature: nature, Count: p.count}

			if leaf || p.typ != TypeUnknown {
				s.Fields = append(s.Fields, Field{
					XPath:       xpath,
					Parent:      prefix,
					ShortName:   c.name,
					Cardinality: p.card,
					Type:        p.typ,
					Nature:      nature,
				})
			}

			attNature := IntermediateAttribute
			if leaf {
				attNature = LeafAttribute
			}
			for _, a := range inf.attrs[xpath] {
				s.Fields = append(s.Fields, Field{
					XPath:       xpath + "@" + a.name,
					Parent:      xpath,
					ShortName:   a.name,
					Cardinality: a.card,
					Type:        a.typ,
					Nature:      attNature,
					Placeholder: strings.Contains(a.name, "#"),
				})
			}

			rec(c, xpath)
		}
	}
	rec(inf.graph.root, "")
	return s
}
