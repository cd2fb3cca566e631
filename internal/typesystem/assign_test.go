package typesystem

import (
	"testing"

	"github.com/unvirt/unvirt/internal/metadata"
)

func TestIsAssignable(t *testing.T) {
	u, l := fixture(t)

	tests := []struct {
		name string
		from string
		to   string // "" means unconstrained
		want bool
	}{
		{name: "identity", from: "Demo.Dog", to: "Demo.Dog", want: true},
		{name: "identity value type", from: "Demo.Point", to: "Demo.Point", want: true},
		{name: "upcast to parent", from: "Demo.Dog", to: "Demo.Animal", want: true},
		{name: "upcast to object", from: "Demo.Dog", to: metadata.NameObject, want: true},
		{name: "downcast rejected", from: "Demo.Animal", to: "Demo.Dog", want: false},
		{name: "siblings rejected", from: "Demo.Dog", to: "Demo.Cat", want: false},
		{name: "unconstrained target", from: "Demo.Dog", to: "", want: true},
		{name: "int32 to boolean legacy case", from: metadata.NameInt32, to: metadata.NameBoolean, want: true},
		{name: "boolean to int32 is not symmetric", from: metadata.NameBoolean, to: metadata.NameInt32, want: false},
		{name: "value type to reference type", from: "Demo.Point", to: "Demo.Animal", want: false},
		{name: "reference type to value type", from: "Demo.Dog", to: "Demo.Point", want: false},
		{name: "value type to object", from: "Demo.Point", to: metadata.NameObject, want: false},
		{name: "enum to its underlying integral", from: "Demo.Color", to: metadata.NameInt32, want: true},
		{name: "unrelated integrals rejected", from: metadata.NameInt64, to: metadata.NameInt32, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from := lookup(t, u, tt.from)
			var to metadata.Type
			if tt.to != "" {
				to = lookup(t, u, tt.to)
			}
			got, err := l.IsAssignable(from, to)
			if err != nil {
				t.Fatalf("IsAssignable() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAssignable(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsAssignableEveryTypeToItself(t *testing.T) {
	u, l := fixture(t)
	for _, name := range []string{
		metadata.NameObject, metadata.NameString, metadata.NameInt32,
		metadata.NameBoolean, "Demo.Dog", "Demo.Point", "Demo.Color",
	} {
		ty := lookup(t, u, name)
		ok, err := l.IsAssignable(ty, ty)
		if err != nil {
			t.Fatalf("IsAssignable(%s, %s) error = %v", name, name, err)
		}
		if !ok {
			t.Errorf("IsAssignable(%s, %s) = false, want true", name, name)
		}
	}
}

func TestIsAssignableArrays(t *testing.T) {
	u, l := fixture(t)
	dogs := &metadata.Array{Elem: lookup(t, u, "Demo.Dog")}
	cats := &metadata.Array{Elem: lookup(t, u, "Demo.Cat")}

	ok, err := l.IsAssignable(dogs, lookup(t, u, metadata.NameArray))
	if err != nil {
		t.Fatalf("IsAssignable() error = %v", err)
	}
	if !ok {
		t.Errorf("IsAssignable(Dog[], Array) = false, want true")
	}

	// No array covariance beyond the synthetic array level.
	ok, err = l.IsAssignable(dogs, cats)
	if err != nil {
		t.Fatalf("IsAssignable() error = %v", err)
	}
	if ok {
		t.Errorf("IsAssignable(Dog[], Cat[]) = true, want false")
	}
}
