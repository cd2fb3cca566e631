package metadata

import (
	"errors"
	"fmt"
)

// ErrUnresolved indicates a type reference that names nothing in the
// universe. Callers receive it wrapped with the offending name.
var ErrUnresolved = errors.New("unresolved type reference")

// Well-known core library names.
const (
	NameObject    = "System.Object"
	NameValueType = "System.ValueType"
	NameEnum      = "System.Enum"
	NameArray     = "System.Array"
	NameString    = "System.String"
	NameBoolean   = "System.Boolean"
	NameChar      = "System.Char"
	NameVoid      = "System.Void"

	NameSByte   = "System.SByte"
	NameByte    = "System.Byte"
	NameInt16   = "System.Int16"
	NameUInt16  = "System.UInt16"
	NameInt32   = "System.Int32"
	NameUInt32  = "System.UInt32"
	NameIntPtr  = "System.IntPtr"
	NameUIntPtr = "System.UIntPtr"
	NameInt64   = "System.Int64"
	NameUInt64  = "System.UInt64"

	NameSingle = "System.Single"
	NameDouble = "System.Double"
)

// Universe is the registry of type definitions recovered from the
// analyzed module and its core library. It is populated once by the
// loader and read-only afterwards.
type Universe struct {
	types map[string]*Named
}

// NewUniverse returns a universe pre-seeded with the core library
// well-knowns every analyzed module links against.
func NewUniverse() *Universe {
	u := &Universe{types: make(map[string]*Named)}
	u.bootstrap()
	return u
}

func (u *Universe) bootstrap() {
	object := &Named{Namespace: "System", Name: "Object"}
	u.types[NameObject] = object

	valueType := &Named{Namespace: "System", Name: "ValueType", Base: object}
	u.types[NameValueType] = valueType

	enum := &Named{Namespace: "System", Name: "Enum", Base: valueType}
	u.types[NameEnum] = enum

	arr := &Named{Namespace: "System", Name: "Array", Base: object}
	u.types[NameArray] = arr

	u.types[NameString] = &Named{Namespace: "System", Name: "String", Base: object}
	u.types[NameVoid] = &Named{Namespace: "System", Name: "Void", ValueType: true, Base: valueType}

	for _, name := range []string{
		NameBoolean, NameChar,
		NameSByte, NameByte, NameInt16, NameUInt16,
		NameInt32, NameUInt32, NameIntPtr, NameUIntPtr,
		NameInt64, NameUInt64,
		NameSingle, NameDouble,
	} {
		u.types[name] = &Named{
			Namespace: "System",
			Name:      name[len("System."):],
			ValueType: true,
			Base:      valueType,
		}
	}
}

// Define registers a type definition. Redefining a full name is a
// configuration fault.
func (u *Universe) Define(n *Named) error {
	name := n.FullName()
	if _, exists := u.types[name]; exists {
		return fmt.Errorf("type %s already defined", name)
	}
	u.types[name] = n
	return nil
}

// MustDefine is Define for statically-known fixtures.
func (u *Universe) MustDefine(n *Named) *Named {
	if err := u.Define(n); err != nil {
		panic(err)
	}
	return n
}

// Lookup finds a definition by full name.
func (u *Universe) Lookup(fullName string) (*Named, bool) {
	n, ok := u.types[fullName]
	return n, ok
}

// Resolve finds a definition by full name, surfacing ErrUnresolved when
// the universe holds nothing under it.
func (u *Universe) Resolve(fullName string) (*Named, error) {
	n, ok := u.types[fullName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, fullName)
	}
	return n, nil
}

// Object returns the universal object type.
func (u *Universe) Object() *Named { return u.types[NameObject] }

// ArrayBase returns the universal array base type.
func (u *Universe) ArrayBase() *Named { return u.types[NameArray] }

// Boolean returns the boolean type.
func (u *Universe) Boolean() *Named { return u.types[NameBoolean] }

// Int32 returns the 32-bit signed integer type.
func (u *Universe) Int32() *Named { return u.types[NameInt32] }
