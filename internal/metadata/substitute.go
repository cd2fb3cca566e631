package metadata

// Substitute replaces generic parameter references in a signature with
// the given argument vector. Base signatures are expressed in the
// defining type's own parameters, so each instantiation step applies
// exactly its own arguments; the result shares unaffected nodes with
// the input.
func Substitute(t Type, args []Type) Type {
	if t == nil || len(args) == 0 {
		return t
	}
	switch ty := t.(type) {
	case *GenericParam:
		if ty.Index >= 0 && ty.Index < len(args) {
			return args[ty.Index]
		}
		return ty

	case *Array:
		return &Array{Elem: Substitute(ty.Elem, args)}

	case *ByRef:
		return &ByRef{Elem: Substitute(ty.Elem, args)}

	case *Spec:
		return &Spec{Inner: Substitute(ty.Inner, args)}

	case *GenericInst:
		newArgs := make([]Type, len(ty.Args))
		for i, arg := range ty.Args {
			newArgs[i] = Substitute(arg, args)
		}
		return &GenericInst{Def: ty.Def, Args: newArgs}

	default:
		// Named and Ref carry no parameter references of their own.
		return t
	}
}
