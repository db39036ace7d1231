// Package sax provides a push-style parse-event source over encoding/xml.
//
// The decoder runs with validation off and custom entity expansion disabled,
// so escaped control characters in the input round-trip as text instead of
// being silently re-expanded downstream.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default; custom entity
//     expansion is explicitly disabled as well.
package sax

import (
	"encoding/xml"
	"errors"
	"io"

	"golang.org/x/net/html/charset"
)

// Attr is one attribute of an opening element, identified by its local name.
type Attr struct {
	Name  string
	Value string
}

// StartElement describes an element-open event.
type StartElement struct {
	// URI is the namespace URI of the element, or "" when the element is not
	// in a namespace.
	URI string
	// Local is the element's local name, without any namespace prefix.
	Local string
	// Prefixed is the element's qualified name as written in the document
	// (prefix:local), or the local name when no prefix applies.
	Prefixed string
	// Attrs lists the element's attributes in document order, excluding
	// namespace declarations.
	Attrs []Attr
}

// Handler receives parse events in document order.
// Any non-nil error aborts parsing and is returned by Parse unchanged.
type Handler interface {
	StartDocument() error
	StartElement(el StartElement) error
	Characters(data string) error
	EndElement(local string) error
	EndDocument() error
}

// Parse streams the XML document from r through h.
// The character encoding is negotiated from the XML declaration.
func Parse(r io.Reader, h Handler) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	// Disable custom entity expansion (defense-in-depth against XXE);
	// the five predefined XML entities are still decoded and re-escaped
	// by the consumers that need round-tripping.
	dec.Entity = map[string]string{}

	if err := h.StartDocument(); err != nil {
		return err
	}

	prefixes := newPrefixStack()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			prefixes.push(t.Attr)
			el := StartElement{
				URI:      t.Name.Space,
				Local:    t.Name.Local,
				Prefixed: prefixes.qualify(t.Name.Space, t.Name.Local),
			}
			for _, a := range t.Attr {
				if isNamespaceDecl(a.Name) {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if err := h.StartElement(el); err != nil {
				return err
			}
		case xml.EndElement:
			if err := h.EndElement(t.Name.Local); err != nil {
				return err
			}
			prefixes.pop()
		case xml.CharData:
			if err := h.Characters(string(t)); err != nil {
				return err
			}
		default:
			// Comments, directives and processing instructions carry no
			// tabular data.
		}
	}

	return h.EndDocument()
}

// isNamespaceDecl reports whether an attribute is an xmlns declaration.
func isNamespaceDecl(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && name.Local == "xmlns")
}

var errNoPrefix = errors.New("no prefix bound")

// prefixStack tracks in-scope namespace declarations so qualified names can
// be rebuilt; encoding/xml resolves prefixes to URIs and drops the prefixes.
type prefixStack struct {
	frames [][2]string // (uri, prefix) pairs, innermost last; "" prefix = default namespace
	depths []int       // number of pairs pushed per open element
}

func newPrefixStack() *prefixStack {
	return &prefixStack{}
}

func (p *prefixStack) push(attrs []xml.Attr) {
	n := 0
	for _, a := range attrs {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			p.frames = append(p.frames, [2]string{a.Value, ""})
			n++
		case a.Name.Space == "xmlns":
			p.frames = append(p.frames, [2]string{a.Value, a.Name.Local})
			n++
		}
	}
	p.depths = append(p.depths, n)
}

func (p *prefixStack) pop() {
	if len(p.depths) == 0 {
		return
	}
	n := p.depths[len(p.depths)-1]
	p.depths = p.depths[:len(p.depths)-1]
	p.frames = p.frames[:len(p.frames)-n]
}

// qualify returns the prefixed form of a name given its namespace URI.
// Innermost declarations win; an unbound URI falls back to the local name.
func (p *prefixStack) qualify(uri, local string) string {
	if uri == "" {
		return local
	}
	prefix, err := p.prefixFor(uri)
	if err != nil || prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func (p *prefixStack) prefixFor(uri string) (string, error) {
	for i := len(p.frames) - 1; i >= 0; i-- {
		if p.frames[i][0] == uri {
			return p.frames[i][1], nil
		}
	}
	return "", errNoPrefix
}
