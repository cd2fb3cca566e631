// Package typesystem computes type ancestry over metadata descriptors:
// root-first hierarchies, the common-base join used wherever control
// flow merges expressions of different static types, and one-directional
// assignability. Every query is recomputed from the universe on each
// call; callers issuing many repeated queries memoize externally.
package typesystem

import (
	"fmt"

	"github.com/unvirt/unvirt/internal/metadata"
)

// Lattice answers ancestry queries against one type universe. It holds
// no mutable state and is safe for concurrent use.
type Lattice struct {
	universe *metadata.Universe
}

// New returns a lattice over the given universe.
func New(u *metadata.Universe) *Lattice {
	return &Lattice{universe: u}
}

// Hierarchy returns the ancestor chain of t ordered from the most
// general ancestor down to t itself. Arrays contribute one synthetic
// level under the universal array base; by-ref wrappers contribute no
// level; type specifications keep one extra level for the constructed
// form; generic parameters collapse to the universal object type. A nil
// type yields an empty chain.
func (l *Lattice) Hierarchy(t metadata.Type) ([]metadata.Type, error) {
	if t == nil {
		return nil, nil
	}
	switch ty := t.(type) {
	case *metadata.Array:
		chain, err := l.Hierarchy(l.universe.ArrayBase())
		if err != nil {
			return nil, err
		}
		return append(chain, ty), nil

	case *metadata.ByRef:
		return l.Hierarchy(ty.Elem)

	case *metadata.Spec:
		chain, err := l.Hierarchy(ty.Inner)
		if err != nil {
			return nil, err
		}
		return append(chain, ty), nil

	case *metadata.GenericParam:
		// Constraint resolution is not modeled; a parameter is only
		// known to be an object.
		return []metadata.Type{l.universe.Object()}, nil

	default:
		return l.climb(t)
	}
}

// climb walks the declared-base chain of a definition, instantiation or
// reference, accumulating most-specific-first and reversing at the end.
// The generic argument vector of each instantiation is applied to its
// base signature before the walk continues, because base signatures are
// expressed in the defining type's own parameters.
func (l *Lattice) climb(t metadata.Type) ([]metadata.Type, error) {
	var chain []metadata.Type
	current := t
	for current != nil {
		if ref, ok := current.(*metadata.Ref); ok {
			named, err := l.universe.Resolve(ref.Name)
			if err != nil {
				return nil, err
			}
			current = named
		}
		switch cur := current.(type) {
		case *metadata.Named:
			if cur.Enum {
				// Arithmetic on an enumeration uses its underlying
				// integral type; continue the walk from there instead
				// of through the Enum/ValueType chain.
				underlying, err := l.universe.Resolve(cur.Underlying)
				if err != nil {
					return nil, fmt.Errorf("enum %s: %w", cur.FullName(), err)
				}
				current = underlying
				continue
			}
			chain = append(chain, cur)
			if cur.ValueType {
				// Boxing is not modeled, so the ValueType/Object
				// chain above a value type is unreachable from the
				// evaluation stack.
				current = nil
				break
			}
			current = cur.Base

		case *metadata.GenericInst:
			chain = append(chain, cur)
			if cur.Def.ValueType || cur.Def.Base == nil {
				current = nil
				break
			}
			current = metadata.Substitute(cur.Def.Base, cur.Args)

		default:
			return nil, fmt.Errorf("unexpected %s in base chain of %s", cur.FullName(), t.FullName())
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
