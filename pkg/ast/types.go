package ast

import "strings"

// AnyNumber is the abstract type tag an un-promoted literal starts out
// with.
const AnyNumber = "any number"

// TypeRank is the total order any number < char < short < int < long <
// float < double that promotion decisions are made against.
var TypeRank = map[string]int{
	AnyNumber: 0,
	"char":    1,
	"short":   2,
	"int":     3,
	"long":    4,
	"float":   5,
	"double":  6,
}

// BasicTypes is the set of scalar base-type keywords (excluding the
// "any number" tag and pointer/struct forms).
var BasicTypes = map[string]bool{
	"char": true, "short": true, "int": true, "long": true, "float": true, "double": true,
}

// IntegralTypes is the subset of BasicTypes usable as a loop/if condition.
var IntegralTypes = map[string]bool{
	"char": true, "short": true, "int": true, "long": true,
}

// IsPointer reports whether a canonical type string denotes a pointer.
func IsPointer(typ string) bool { return strings.HasSuffix(typ, "*") }

// DerefType strips one level of pointer indirection from a canonical type
// string. Caller must check IsPointer first.
func DerefType(typ string) string { return strings.TrimSuffix(typ, "*") }

// PointerTo appends one level of pointer indirection.
func PointerTo(typ string) string { return typ + "*" }

// Rankable reports whether both types participate in the numeric promotion
// order (both are keys of TypeRank).
func Rankable(a, b string) bool {
	_, okA := TypeRank[a]
	_, okB := TypeRank[b]
	return okA && okB
}
