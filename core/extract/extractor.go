package extract

import (
	"io"
	"sort"
	"strings"

	"github.com/xmlflat/xmlflat/core/encoding"
	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/sax"
	"github.com/xmlflat/xmlflat/core/schema"
)

// DefaultSeparator is the field separator used when none is configured.
const DefaultSeparator = ";"

// Options control one extraction run.
type Options struct {
	Variant Variant
	// WithAttributes extracts attribute values for tracked attribute columns.
	WithAttributes bool
	// WithNamespaces matches elements by prefixed name and emits the
	// namespace preamble ahead of the header.
	WithNamespaces bool
	// Unleashed includes the document root in the tracked-parent state
	// machine: the whole document becomes one packing span.
	Unleashed bool
	// SingleHeader emits the header before the first document only.
	SingleHeader bool
	// NoHeader suppresses the header entirely.
	NoHeader bool
	// Separator defaults to DefaultSeparator.
	Separator string
	// Path names the data document in error messages.
	Path string
}

// Extractor streams one or more data documents against a tracked schema,
// buffering rows between settlement points. It implements sax.Handler.
type Extractor struct {
	tracked *TrackedSchema
	opts    Options
	sink    Sink
	buf     *RowBuffer

	stack  []string
	texts  []*strings.Builder
	stash  [][]sax.Attr
	opened int
	docs   int
}

// NewExtractor returns an Extractor writing lines to sink.
func NewExtractor(tracked *TrackedSchema, opts Options, sink Sink) *Extractor {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	return &Extractor{
		tracked: tracked,
		opts:    opts,
		sink:    sink,
		buf:     NewRowBuffer(tracked, opts.Variant, opts.Separator, sink),
	}
}

// Extract runs one data document through a fresh Extractor.
func Extract(r io.Reader, tracked *TrackedSchema, opts Options, sink Sink) error {
	return NewExtractor(tracked, opts, sink).Run(r)
}

// Run parses one data document. Parse and contract failures surface as
// ExtractionErrors scoped to this document; packing-invariant violations
// keep their OptimizationFault identity.
func (ex *Extractor) Run(r io.Reader) error {
	if err := sax.Parse(r, ex); err != nil {
		var fault *errors.OptimizationFault
		var exErr *errors.ExtractionError
		if errors.As(err, &fault) || errors.As(err, &exErr) {
			return err
		}
		return errors.NewExtraction(ex.opts.Path, err)
	}
	return nil
}

// SetPath names the next data document in error messages and logs.
func (ex *Extractor) SetPath(path string) {
	ex.opts.Path = path
}

// Reset clears per-document state so the Extractor can replay another
// document of the same family. The document counter survives so a single
// header stays single.
func (ex *Extractor) Reset() {
	ex.stack = ex.stack[:0]
	ex.texts = ex.texts[:0]
	ex.stash = ex.stash[:0]
	ex.opened = 0
	ex.buf.Reset()
}

// StartDocument resets state and emits the header.
func (ex *Extractor) StartDocument() error {
	ex.Reset()
	defer func() { ex.docs++ }()
	if ex.opts.NoHeader || (ex.opts.SingleHeader && ex.docs > 0) {
		return nil
	}
	if ex.opts.WithNamespaces && len(ex.tracked.Namespaces()) > 0 {
		if err := ex.sink.WriteLine(ex.namespacePreamble()); err != nil {
			return err
		}
		if err := ex.sink.WriteLine(""); err != nil {
			return err
		}
	}
	return ex.sink.WriteLine(strings.Join(ex.tracked.HeaderXPaths(), ex.opts.Separator))
}

func (ex *Extractor) namespacePreamble() string {
	ns := ex.tracked.Namespaces()
	aliases := make([]string, 0, len(ns))
	for a := range ns {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	var b strings.Builder
	b.WriteString("NAMESPACES:")
	for _, a := range aliases {
		b.WriteString(" " + a + "=" + ns[a])
	}
	return b.String()
}

// StartElement opens tracked-parent spans, handles intermediate attributes
// immediately and defers leaf attributes to the close event.
func (ex *Extractor) StartElement(el sax.StartElement) error {
	name := el.Local
	if ex.opts.WithNamespaces {
		name = el.Prefixed
	}
	ex.stack = append(ex.stack, name)
	ex.texts = append(ex.texts, &strings.Builder{})
	xpath := strings.Join(ex.stack, ".")

	if ex.isActiveParent(xpath) {
		ex.opened++
		if ex.opts.Variant != VariantNone {
			ex.buf.OpenParent(xpath)
		}
	}

	prop, known := ex.tracked.Property(xpath)
	intermediate := known && prop.Nature == schema.IntermediateElement

	var deferred []sax.Attr
	if ex.opts.WithAttributes {
		if intermediate {
			if err := ex.emitAttrs(xpath, el.Attrs); err != nil {
				return err
			}
		} else {
			deferred = el.Attrs
		}
	}
	ex.stash = append(ex.stash, deferred)

	if ex.opts.Variant == VariantExtensiveV3 {
		if c := ex.tracked.Index(xpath + "@" + schema.CatalystAttribute); c >= 0 {
			if err := ex.emitCell(c, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// Characters accumulates text for the innermost open element.
func (ex *Extractor) Characters(data string) error {
	if len(ex.texts) == 0 {
		return nil
	}
	ex.texts[len(ex.texts)-1].WriteString(data)
	return nil
}

// EndElement emits the element's content cell and deferred attribute cells,
// closes its span and settles the buffer when the last tracked parent
// closes.
func (ex *Extractor) EndElement(string) error {
	if len(ex.stack) == 0 {
		return errors.NewStructure(ex.opts.Path, "element close without a matching open")
	}
	xpath := strings.Join(ex.stack, ".")
	content := encoding.CleanValue(ex.texts[len(ex.texts)-1].String())

	if c := ex.tracked.Index(xpath); c >= 0 {
		prop, known := ex.tracked.Property(xpath)
		mixed := known && prop.Nature == schema.IntermediateElement
		if !mixed || content != "" {
			if err := ex.emitCell(c, content); err != nil {
				return err
			}
		}
	}

	if err := ex.emitAttrs(xpath, ex.stash[len(ex.stash)-1]); err != nil {
		return err
	}

	if ex.isActiveParent(xpath) {
		if ex.opts.Variant != VariantNone {
			ex.buf.CloseParent(xpath)
		}
		ex.opened--
		if ex.opened == 0 && ex.opts.Variant != VariantNone {
			if err := ex.buf.Pack(); err != nil {
				return err
			}
			if err := ex.buf.Flush(); err != nil {
				return err
			}
		}
	}

	ex.stack = ex.stack[:len(ex.stack)-1]
	ex.texts = ex.texts[:len(ex.texts)-1]
	ex.stash = ex.stash[:len(ex.stash)-1]
	return nil
}

// EndDocument settles whatever the spans left behind, such as cells of
// fields sitting directly under an excluded root.
func (ex *Extractor) EndDocument() error {
	if ex.opts.Variant == VariantNone || ex.buf.IsEmpty() {
		return nil
	}
	if err := ex.buf.Pack(); err != nil {
		return err
	}
	return ex.buf.Flush()
}

// isActiveParent reports whether an element instance participates in the
// tracked-parent state machine. The document root stays out unless
// unleashed: treating it as a span would buffer the whole document.
func (ex *Extractor) isActiveParent(xpath string) bool {
	if !ex.tracked.IsTrackedParent(xpath) {
		return false
	}
	if len(ex.stack) == 1 && !ex.opts.Unleashed {
		return false
	}
	return true
}

func (ex *Extractor) emitAttrs(xpath string, attrs []sax.Attr) error {
	for _, a := range attrs {
		c := ex.tracked.Index(xpath + "@" + a.Name)
		if c < 0 {
			continue
		}
		if err := ex.emitCell(c, encoding.CleanValue(a.Value)); err != nil {
			return err
		}
	}
	return nil
}

// emitCell buffers one cell, or writes it straight out as a full-width
// sparse line when packing is off.
func (ex *Extractor) emitCell(column int, value string) error {
	if ex.opts.Variant == VariantNone {
		return ex.sink.WriteLine(ex.rawLine(column, value))
	}
	ex.buf.AddCell(column, value)
	return nil
}

// rawLine renders a full-width line with a single populated column.
func (ex *Extractor) rawLine(column int, value string) string {
	parts := make([]string, 0, ex.tracked.Len())
	for c := 0; c < ex.tracked.Len(); c++ {
		if ex.tracked.Field(c).Placeholder {
			continue
		}
		if c == column {
			parts = append(parts, encoding.EscapeCSV(value, ex.opts.Separator))
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, ex.opts.Separator)
}
