package extract

import (
	"strings"

	"github.com/xmlflat/xmlflat/core/encoding"
	"github.com/xmlflat/xmlflat/core/errors"
	"github.com/xmlflat/xmlflat/core/schema"
)

// Sink receives finished CSV lines, one at a time, without line endings.
type Sink interface {
	WriteLine(line string) error
}

// row is one buffered output candidate. Cells are sparse: nil means the
// column was never touched, an empty string is a real extracted value.
// Marker rows carry no cells; they delimit tracked-parent spans for packing
// and never reach the output.
type row struct {
	cells     []*string
	openMark  string
	closeMark string
}

func (r *row) isMarker() bool {
	return r.openMark != "" || r.closeMark != ""
}

// RowBuffer accumulates sparse rows between two settlement points, packs
// them according to the selected variant and flushes them to the sink.
type RowBuffer struct {
	tracked *TrackedSchema
	variant Variant
	sep     string
	sink    Sink
	rows    []row
}

// NewRowBuffer returns an empty buffer writing to sink.
func NewRowBuffer(tracked *TrackedSchema, variant Variant, separator string, sink Sink) *RowBuffer {
	return &RowBuffer{tracked: tracked, variant: variant, sep: separator, sink: sink}
}

// AddCell appends a one-cell row holding value at the given column.
func (b *RowBuffer) AddCell(column int, value string) {
	cells := make([]*string, b.tracked.Len())
	v := value
	cells[column] = &v
	b.rows = append(b.rows, row{cells: cells})
}

// OpenParent appends an opening marker row for a tracked parent instance.
func (b *RowBuffer) OpenParent(xpath string) {
	b.rows = append(b.rows, row{openMark: xpath})
}

// CloseParent appends a closing marker row for a tracked parent instance.
func (b *RowBuffer) CloseParent(xpath string) {
	b.rows = append(b.rows, row{closeMark: xpath})
}

// IsEmpty reports whether the buffer holds no rows at all.
func (b *RowBuffer) IsEmpty() bool {
	return len(b.rows) == 0
}

// Reset discards all buffered rows.
func (b *RowBuffer) Reset() {
	b.rows = nil
}

// Pack runs the selected packing variant over the buffered rows. Spans are
// processed innermost first, in close-marker order, so consolidated inner
// rows are ready when an enclosing span propagates into them.
func (b *RowBuffer) Pack() error {
	if b.variant == VariantNone {
		return nil
	}

	type frame struct {
		xpath string
		idx   int
	}
	var stack []frame
	for i := range b.rows {
		r := &b.rows[i]
		switch {
		case r.openMark != "":
			stack = append(stack, frame{r.openMark, i})
		case r.closeMark != "":
			if len(stack) == 0 || stack[len(stack)-1].xpath != r.closeMark {
				return errors.NewOptimization(r.closeMark, "close marker without a matching open")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := b.packSpan(top.xpath, top.idx, i); err != nil {
				return err
			}
		}
	}
	if len(stack) != 0 {
		return errors.NewOptimization(stack[len(stack)-1].xpath, "open marker without a matching close")
	}
	return nil
}

// packSpan consolidates and, for the extensive variants, propagates within
// one tracked-parent span delimited by the rows at inf and sup.
func (b *RowBuffer) packSpan(parent string, inf, sup int) error {
	consolidate := make([]bool, b.tracked.Len())
	propagate := make([]bool, b.tracked.Len())
	for c := 0; c < b.tracked.Len(); c++ {
		f := b.tracked.Field(c)
		consolidate[c] = b.isConsolidationColumn(parent, f)
		propagate[c] = b.isPropagationColumn(parent, f)
	}

	// Consolidation: move every cell of an eligible column onto the first
	// row of the span that carries one. Two values competing for the same
	// destination cell violate single cardinality.
	var dest *row
	destIdx := -1
	for i := inf + 1; i < sup; i++ {
		r := &b.rows[i]
		if r.isMarker() {
			continue
		}
		for c, v := range r.cells {
			if v == nil || !consolidate[c] {
				continue
			}
			if dest == nil {
				dest = r
				destIdx = i
				continue
			}
			if r == dest {
				continue
			}
			if dest.cells[c] != nil {
				return errors.NewOptimization(parent,
					"destination cell collision for "+b.tracked.Field(c).XPath)
			}
			dest.cells[c] = v
			r.cells[c] = nil
		}
	}

	if b.variant == VariantStandard || dest == nil {
		return nil
	}

	// Propagation: copy the consolidated row into every later row of the
	// span holding a repetition-bearing cell, then retire the consolidated
	// row so its values appear exactly once per target. Rows before the
	// consolidated one stay untouched.
	propagated := false
	for i := destIdx + 1; i < sup; i++ {
		r := &b.rows[i]
		if r.isMarker() {
			continue
		}
		eligible := false
		for c, v := range r.cells {
			if v != nil && propagate[c] {
				eligible = true
				break
			}
		}
		if !eligible {
			continue
		}
		for c, v := range dest.cells {
			if v != nil && r.cells[c] == nil {
				copied := *v
				r.cells[c] = &copied
			}
		}
		propagated = true
	}
	if propagated {
		for c := range dest.cells {
			dest.cells[c] = nil
		}
	}
	return nil
}

// isConsolidationColumn reports whether a field's cells settle onto the
// consolidated row of a span opened by parent.
func (b *RowBuffer) isConsolidationColumn(parent string, f schema.Field) bool {
	if f.Cardinality.IsRepeated() {
		return false
	}
	switch b.variant {
	case VariantStandard, VariantExtensiveV1:
		return f.Parent == parent
	case VariantExtensiveV2, VariantExtensiveV3:
		return b.tracked.chainAllSingle(parent, f)
	}
	return false
}

// isPropagationColumn reports whether a cell in this column makes its row a
// propagation target within a span opened by parent.
func (b *RowBuffer) isPropagationColumn(parent string, f schema.Field) bool {
	switch b.variant {
	case VariantExtensiveV1:
		if f.Parent == parent {
			return f.Cardinality.IsRepeated()
		}
		return schema.IsDescendant(f.Parent, parent)
	case VariantExtensiveV2, VariantExtensiveV3:
		if f.Parent == parent {
			return f.Cardinality.IsRepeated()
		}
		return b.tracked.chainHasRepeated(parent, f)
	}
	return false
}

// Flush emits the buffered rows and empties the buffer. Marker rows,
// placeholder cells and rows left without any cell are dropped.
func (b *RowBuffer) Flush() error {
	for i := range b.rows {
		r := &b.rows[i]
		if r.isMarker() {
			continue
		}
		line, blank := b.buildLine(r)
		if blank {
			continue
		}
		if err := b.sink.WriteLine(line); err != nil {
			return err
		}
	}
	b.rows = nil
	return nil
}

// buildLine renders one row, suppressing placeholder columns, and reports
// whether every remaining cell was untouched.
func (b *RowBuffer) buildLine(r *row) (string, bool) {
	parts := make([]string, 0, b.tracked.Len())
	blank := true
	for c, v := range r.cells {
		if b.tracked.Field(c).Placeholder {
			continue
		}
		if v == nil {
			parts = append(parts, "")
			continue
		}
		blank = false
		parts = append(parts, encoding.EscapeCSV(*v, b.sep))
	}
	return strings.Join(parts, b.sep), blank
}
