// Package extract streams data documents against a tracked schema and packs
// the resulting sparse rows into CSV lines.
package extract

import "fmt"

// Variant selects the row packing strategy applied at settlement points.
type Variant int

const (
	// VariantNone emits one full-width line per extracted cell, bypassing
	// the row buffer entirely.
	VariantNone Variant = iota
	// VariantStandard consolidates single-cardinality direct children of
	// each tracked parent onto one row.
	VariantStandard
	// VariantExtensiveV1 adds propagation of the consolidated row into rows
	// holding repeated or deeper fields.
	VariantExtensiveV1
	// VariantExtensiveV2 widens consolidation to fields reachable through
	// chains of single-cardinality intermediates and narrows propagation to
	// repetition-bearing rows.
	VariantExtensiveV2
	// VariantExtensiveV3 is VariantExtensiveV2 run against a schema
	// augmented with catalyst placeholder columns.
	VariantExtensiveV3
)

var variantNames = map[Variant]string{
	VariantNone:        "none",
	VariantStandard:    "standard",
	VariantExtensiveV1: "extensive-v1",
	VariantExtensiveV2: "extensive-v2",
	VariantExtensiveV3: "extensive-v3",
}

func (v Variant) String() string {
	if n, ok := variantNames[v]; ok {
		return n
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// ParseVariant converts a command-line name into a Variant.
func ParseVariant(s string) (Variant, error) {
	for v, n := range variantNames {
		if n == s {
			return v, nil
		}
	}
	return VariantNone, fmt.Errorf("unknown packing variant %q", s)
}
