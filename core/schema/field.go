// Package schema builds an ordered field catalog from one template XML
// document. The catalog describes every extractable leaf element and
// attribute of a family of structurally-similar documents: its dot-joined
// XPath, cardinality, sniffed data type and nature.
package schema

import (
	"fmt"
	"strings"
)

// Cardinality describes how often a field occurs under one parent instance.
type Cardinality int

const (
	// OneToOne is the default: exactly once per parent instance.
	OneToOne Cardinality = iota
	// ZeroToOne occurs at most once per parent instance.
	ZeroToOne
	// OneToMany occurs at least once per parent instance.
	OneToMany
	// ZeroToMany occurs any number of times per parent instance.
	ZeroToMany
)

func (c Cardinality) String() string {
	switch c {
	case OneToOne:
		return "1..1"
	case ZeroToOne:
		return "0..1"
	case OneToMany:
		return "1..N"
	case ZeroToMany:
		return "0..N"
	default:
		return fmt.Sprintf("Cardinality(%d)", int(c))
	}
}

// IsOptional reports whether the lower bound is zero.
func (c Cardinality) IsOptional() bool {
	return c == ZeroToOne || c == ZeroToMany
}

// IsRepeated reports whether the upper bound is unbounded.
func (c Cardinality) IsRepeated() bool {
	return c == OneToMany || c == ZeroToMany
}

// Optional widens the lower bound to zero, keeping the upper bound.
func (c Cardinality) Optional() Cardinality {
	if c.IsRepeated() {
		return ZeroToMany
	}
	return ZeroToOne
}

// Repeated widens the upper bound, keeping the lower bound.
func (c Cardinality) Repeated() Cardinality {
	if c.IsOptional() {
		return ZeroToMany
	}
	return OneToMany
}

// MarshalText implements encoding.TextMarshaler.
func (c Cardinality) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cardinality) UnmarshalText(text []byte) error {
	switch string(text) {
	case "1..1":
		*c = OneToOne
	case "0..1":
		*c = ZeroToOne
	case "1..N":
		*c = OneToMany
	case "0..N":
		*c = ZeroToMany
	default:
		return fmt.Errorf("unknown cardinality %q", text)
	}
	return nil
}

// DataType is the sniffed content type of a field.
type DataType int

const (
	// TypeUnknown marks a field whose content has not been seen yet.
	TypeUnknown DataType = iota
	TypeString
	TypeBoolean
	TypeInteger
	TypeDecimal
	TypeDate
	TypeTime
	TypeDateTime
)

var dataTypeNames = map[DataType]string{
	TypeUnknown:  "unknown",
	TypeString:   "string",
	TypeBoolean:  "boolean",
	TypeInteger:  "integer",
	TypeDecimal:  "decimal",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeDateTime: "datetime",
}

func (d DataType) String() string {
	if n, ok := dataTypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("DataType(%d)", int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(text []byte) error {
	for k, n := range dataTypeNames {
		if n == string(text) {
			*d = k
			return nil
		}
	}
	return fmt.Errorf("unknown data type %q", text)
}

// Nature locates a field in the document structure.
type Nature int

const (
	// LeafElement is an element with no child elements.
	LeafElement Nature = iota
	// IntermediateElement is an element with child elements. It only becomes
	// a field of its own when it has mixed content.
	IntermediateElement
	// LeafAttribute is an attribute of a leaf element.
	LeafAttribute
	// IntermediateAttribute is an attribute of an intermediate element.
	IntermediateAttribute
)

func (n Nature) String() string {
	switch n {
	case LeafElement:
		return "leaf element"
	case IntermediateElement:
		return "intermediate element"
	case LeafAttribute:
		return "leaf attribute"
	case IntermediateAttribute:
		return "intermediate attribute"
	default:
		return fmt.Sprintf("Nature(%d)", int(n))
	}
}

// IsAttribute reports whether the field is an attribute.
func (n Nature) IsAttribute() bool {
	return n == LeafAttribute || n == IntermediateAttribute
}

// MarshalText implements encoding.TextMarshaler.
func (n Nature) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Nature) UnmarshalText(text []byte) error {
	switch string(text) {
	case "leaf element":
		*n = LeafElement
	case "intermediate element":
		*n = IntermediateElement
	case "leaf attribute":
		*n = LeafAttribute
	case "intermediate attribute":
		*n = IntermediateAttribute
	default:
		return fmt.Errorf("unknown nature %q", text)
	}
	return nil
}

// Field is one extractable column of the flattened output.
type Field struct {
	// XPath is the dot-joined path from the root, e.g. "Root.Row.Id" or
	// "Root.Row@unit" for an attribute.
	XPath string `json:"xpath"`
	// Parent is the XPath of the enclosing element ("" for the root element).
	Parent string `json:"parent"`
	// ShortName is the last path segment (attribute name for attributes).
	ShortName string `json:"short_name"`

	Cardinality Cardinality `json:"cardinality"`
	Type        DataType    `json:"type"`
	Nature      Nature      `json:"nature"`

	// Placeholder marks a synthesized catalyst column: it participates in
	// packing but is suppressed from header and data output.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Property is the structural record kept for every element of the template,
// intermediates included; the Dictionary below carries one per element XPath.
type Property struct {
	Cardinality Cardinality `json:"cardinality"`
	Type        DataType    `json:"type"`
	Nature      Nature      `json:"nature"`
	// Count is how many times the element occurred in the template document.
	Count int64 `json:"count"`
}

// Schema is the inferred catalog of a document family.
type Schema struct {
	// Fields lists the extractable fields in document order.
	Fields []Field `json:"fields"`
	// Dictionary maps every element XPath (leaves and intermediates) to its
	// structural record.
	Dictionary map[string]Property `json:"dictionary"`
	// Namespaces maps alias to URI for every namespace seen in the template;
	// the default namespace uses the {default} alias.
	Namespaces map[string]string `json:"namespaces,omitempty"`
}

// Index returns the position of the field with the given XPath, or -1.
func (s *Schema) Index(xpath string) int {
	for i := range s.Fields {
		if s.Fields[i].XPath == xpath {
			return i
		}
	}
	return -1
}

// XPaths returns the ordered field XPaths.
func (s *Schema) XPaths() []string {
	out := make([]string, len(s.Fields))
	for i := range s.Fields {
		out[i] = s.Fields[i].XPath
	}
	return out
}

// ParentOf returns the enclosing element XPath of a field XPath, stripping
// either the attribute suffix or the last dotted segment.
func ParentOf(xpath string) string {
	if i := strings.LastIndex(xpath, "@"); i >= 0 {
		return xpath[:i]
	}
	if i := strings.LastIndex(xpath, "."); i >= 0 {
		return xpath[:i]
	}
	return ""
}

// ShortNameOf returns the last segment of a field XPath.
func ShortNameOf(xpath string) string {
	if i := strings.LastIndex(xpath, "@"); i >= 0 {
		return xpath[i+1:]
	}
	if i := strings.LastIndex(xpath, "."); i >= 0 {
		return xpath[i+1:]
	}
	return xpath
}

// IsDescendant reports whether xpath sits strictly below ancestor, with the
// boundary at a dot (child element) or an at sign (attribute).
func IsDescendant(xpath, ancestor string) bool {
	if len(xpath) <= len(ancestor) || !strings.HasPrefix(xpath, ancestor) {
		return false
	}
	switch xpath[len(ancestor)] {
	case '.', '@':
		return true
	}
	return false
}
