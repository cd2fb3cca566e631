package typesystem

import "github.com/unvirt/unvirt/internal/metadata"

// integralOrder is the fixed promotion list over the ten integral
// kinds. Promotion picks the member appearing latest in this list; the
// order is list-positional, not a numeric-width rank, and the unsigned
// kind of each width deliberately outranks the signed one.
var integralOrder = []string{
	metadata.NameSByte,
	metadata.NameByte,
	metadata.NameInt16,
	metadata.NameUInt16,
	metadata.NameInt32,
	metadata.NameUInt32,
	metadata.NameIntPtr,
	metadata.NameUIntPtr,
	metadata.NameInt64,
	metadata.NameUInt64,
}

// integralRank returns the promotion-list position of a type, or -1
// when the type is not one of the ten integral kinds.
func integralRank(t metadata.Type) int {
	name := t.FullName()
	for i, candidate := range integralOrder {
		if candidate == name {
			return i
		}
	}
	return -1
}

// IsIntegral reports whether t is one of the ten integral kinds.
func IsIntegral(t metadata.Type) bool {
	return t != nil && integralRank(t) >= 0
}

// CommonBaseType joins a set of candidate types to the most specific
// type every member unifies to. An all-integral set promotes over the
// fixed integral list. Otherwise the shared root-first hierarchy prefix
// decides; a nil result with a nil error means the set has no common
// ancestor, which callers handle as a normal outcome.
func (l *Lattice) CommonBaseType(types []metadata.Type) (metadata.Type, error) {
	if len(types) == 0 {
		return nil, nil
	}
	if len(types) == 1 {
		return types[0], nil
	}

	if promoted := promoteIntegral(types); promoted != nil {
		return promoted, nil
	}

	hierarchies := make([][]metadata.Type, len(types))
	shortest := -1
	for i, t := range types {
		chain, err := l.Hierarchy(t)
		if err != nil {
			return nil, err
		}
		hierarchies[i] = chain
		if shortest < 0 || len(chain) < shortest {
			shortest = len(chain)
		}
	}
	if shortest == 0 {
		return nil, nil
	}

	for pos := 0; pos < shortest; pos++ {
		name := hierarchies[0][pos].FullName()
		for _, chain := range hierarchies[1:] {
			if chain[pos].FullName() != name {
				if pos == 0 {
					return nil, nil
				}
				return hierarchies[0][pos-1], nil
			}
		}
	}
	// All chains agree up to the shortest; its last entry is the join.
	for _, chain := range hierarchies {
		if len(chain) == shortest {
			return chain[shortest-1], nil
		}
	}
	return nil, nil
}

// promoteIntegral returns the latest-listed member of an all-integral
// set, or nil when any member is non-integral.
func promoteIntegral(types []metadata.Type) metadata.Type {
	best := -1
	var result metadata.Type
	for _, t := range types {
		if t == nil {
			return nil
		}
		rank := integralRank(t)
		if rank < 0 {
			return nil
		}
		if rank > best {
			best = rank
			result = t
		}
	}
	return result
}
