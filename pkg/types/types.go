// Package types holds the annotation data model: type tags, signatures and the
// per-file signature table.
package types

import (
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// TypeTag is a primitive type name. Unknown is never a mismatch target.
type TypeTag string

const (
	String  TypeTag = "string"
	Number  TypeTag = "number"
	Boolean TypeTag = "boolean"
	Unknown TypeTag = "unknown"
)

// ParseTag maps an annotation token to a tag. Unrecognized tokens map to
// Unknown and ok is false.
func ParseTag(s string) (tag TypeTag, ok bool) {
	switch TypeTag(s) {
	case String, Number, Boolean, Unknown:
		return TypeTag(s), true
	}
	return Unknown, false
}

// Comparable reports whether a and b may be compared: neither is Unknown.
func Comparable(a, b TypeTag) bool { return a != Unknown && b != Unknown }

// Mismatch reports whether expected and actual are comparable and differ.
func Mismatch(expected, actual TypeTag) bool {
	return Comparable(expected, actual) && expected != actual
}

// Signature is the declared shape of an annotated function. A nil Inputs slice
// means no @input line was seen; Output is empty when absent.
type Signature struct {
	Name   string    `json:"name"`
	Inputs []TypeTag `json:"inputs,omitempty"`
	Output TypeTag   `json:"output,omitempty"`
}

// Table maps function names to signatures. The zero value is an empty table.
// A Table is never modified after construction.
type Table struct {
	sigs map[string]Signature
}

// NewTable copies sigs into an immutable table.
func NewTable(sigs map[string]Signature) Table {
	t := Table{sigs: make(map[string]Signature, len(sigs))}
	for name, sig := range sigs {
		sig.Inputs = slices.Clone(sig.Inputs)
		t.sigs[name] = sig
	}
	return t
}

func (t Table) Lookup(name string) (Signature, bool) {
	sig, ok := t.sigs[name]
	return sig, ok
}

func (t Table) Len() int { return len(t.sigs) }

// Names returns the annotated function names in sorted order.
func (t Table) Names() []string {
	names := lo.Keys(t.sigs)
	slices.Sort(names)
	return names
}

// Signatures returns every signature ordered by name.
func (t Table) Signatures() []Signature {
	return lo.Map(t.Names(), func(name string, _ int) Signature { return t.sigs[name] })
}
