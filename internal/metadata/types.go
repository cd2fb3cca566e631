// Package metadata models the read-only type universe the recompiler
// queries: type descriptors with full-name identity, value-type-ness and
// structural shape, plus the registry that resolves references between
// them. The analyses in internal/typesystem treat everything here as
// immutable; concurrent reads are safe once a universe is populated.
package metadata

import (
	"fmt"
	"strings"
)

// Type is the closed interface over all type descriptors.
type Type interface {
	typeDesc()
	// FullName is the identity used throughout the lattice analyses.
	FullName() string
	IsValueType() bool
}

// Named is a type definition: a plain class, value type, enumeration or
// generic definition resolved from metadata.
type Named struct {
	Namespace string
	Name      string
	ValueType bool

	// Enum marks enumerations; Underlying is the full name of the
	// integral type their arithmetic actually uses.
	Enum       bool
	Underlying string

	// Base is the declared base signature, expressed in this
	// definition's own generic parameters. Nil when no base exists.
	Base Type

	// GenericParams is the number of generic parameters the
	// definition declares.
	GenericParams int
}

func (n *Named) typeDesc() {}

func (n *Named) FullName() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

func (n *Named) IsValueType() bool { return n.ValueType }

// Ref is an unresolved by-name reference to a definition in another
// module. Analyses must resolve it through a Universe; an unresolvable
// ref is surfaced to the caller, never silently substituted.
type Ref struct {
	Name string
}

func (r *Ref) typeDesc() {}

func (r *Ref) FullName() string  { return r.Name }
func (r *Ref) IsValueType() bool { return false }

// Array is a single-dimension array over an element type.
type Array struct {
	Elem Type
}

func (a *Array) typeDesc() {}

func (a *Array) FullName() string  { return a.Elem.FullName() + "[]" }
func (a *Array) IsValueType() bool { return false }

// ByRef is a managed reference to a value of the wrapped type.
type ByRef struct {
	Elem Type
}

func (b *ByRef) typeDesc() {}

func (b *ByRef) FullName() string  { return b.Elem.FullName() + "&" }
func (b *ByRef) IsValueType() bool { return b.Elem.IsValueType() }

// Spec is a type specification wrapping an inner signature. It keeps
// one extra, more-specific level for constructed types.
type Spec struct {
	Inner Type
}

func (s *Spec) typeDesc() {}

func (s *Spec) FullName() string  { return s.Inner.FullName() }
func (s *Spec) IsValueType() bool { return s.Inner.IsValueType() }

// GenericParam is a positional reference to a generic parameter of the
// enclosing definition.
type GenericParam struct {
	Index int
	Name  string
}

func (g *GenericParam) typeDesc() {}

func (g *GenericParam) FullName() string {
	if g.Name != "" {
		return "!" + g.Name
	}
	return fmt.Sprintf("!%d", g.Index)
}

func (g *GenericParam) IsValueType() bool { return false }

// GenericInst is an instantiation of a generic definition with a
// concrete argument vector.
type GenericInst struct {
	Def  *Named
	Args []Type
}

func (g *GenericInst) typeDesc() {}

func (g *GenericInst) FullName() string {
	names := make([]string, len(g.Args))
	for i, arg := range g.Args {
		names[i] = arg.FullName()
	}
	return g.Def.FullName() + "<" + strings.Join(names, ", ") + ">"
}

func (g *GenericInst) IsValueType() bool { return g.Def.ValueType }
