package typesystem

import "github.com/unvirt/unvirt/internal/metadata"

// IsAssignable reports whether a value of type from may be used where
// to is expected. The test is one-directional hierarchy containment:
// interface implementation, numeric widening and array covariance are
// not modeled. A nil to is unconstrained and accepts anything. The VM's
// evaluation stack represents booleans as 32-bit integers, so
// Int32-to-Boolean is accepted as a legacy special case.
func (l *Lattice) IsAssignable(from, to metadata.Type) (bool, error) {
	if to == nil {
		return true, nil
	}
	if from == nil {
		return false, nil
	}
	if from.FullName() == to.FullName() {
		return true, nil
	}
	if from.FullName() == metadata.NameInt32 && to.FullName() == metadata.NameBoolean {
		return true, nil
	}
	if from.IsValueType() != to.IsValueType() {
		return false, nil
	}
	chain, err := l.Hierarchy(from)
	if err != nil {
		return false, err
	}
	target := to.FullName()
	for _, ancestor := range chain {
		if ancestor.FullName() == target {
			return true, nil
		}
	}
	return false, nil
}
