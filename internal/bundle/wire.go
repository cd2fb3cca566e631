// Package bundle defines the interchange formats around a run: the
// input bundle of virtualized methods extracted from a binary, and the
// devirtualized IR dump a run produces. Both are CBOR on the wire and
// xz-compressed on disk.
package bundle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/unvirt/unvirt/internal/vm"
)

// cborEncMode uses canonical encoding so identical bundles are
// byte-identical regardless of producer.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Method is one virtualized method lifted out of the analyzed binary.
type Method struct {
	Name  string `cbor:"name"`
	Token uint32 `cbor:"token"`
	Body  []byte `cbor:"body"`
}

// Bundle is the input to a devirtualization run.
type Bundle struct {
	Version   int              `cbor:"version"`
	Module    string           `cbor:"module"`
	OpcodeMap map[uint8]string `cbor:"opcodeMap,omitempty"`
	Methods   []Method         `cbor:"methods"`
}

// Version is the current bundle wire version.
const Version = 1

// VMOpcodeMap resolves the bundle's embedded opcode mapping to the
// decoder's form. Extractors record the analyzed build's shuffle here
// so a bundle decodes correctly without a separate profile.
func (b *Bundle) VMOpcodeMap() (vm.OpcodeMap, error) {
	if len(b.OpcodeMap) == 0 {
		return vm.Identity(), nil
	}
	m := make(vm.OpcodeMap, len(b.OpcodeMap))
	for raw, mnemonic := range b.OpcodeMap {
		op, ok := vm.OpcodeByName(mnemonic)
		if !ok {
			return nil, fmt.Errorf("bundle: unknown mnemonic %q for byte 0x%02x", mnemonic, raw)
		}
		m[raw] = op
	}
	return m, nil
}

// DumpInstruction is one emitted output instruction in dump form.
type DumpInstruction struct {
	Mnemonic string `cbor:"op"`
	Operand  string `cbor:"operand,omitempty"`
}

// DumpMethod is one devirtualized method of a dump.
type DumpMethod struct {
	Name         string            `cbor:"name"`
	Token        uint32            `cbor:"token"`
	Instructions []DumpInstruction `cbor:"instructions"`
}

// Dump is the devirtualized IR a run writes for downstream patching.
type Dump struct {
	Version int          `cbor:"version"`
	RunID   string       `cbor:"runId"`
	Module  string       `cbor:"module"`
	Methods []DumpMethod `cbor:"methods"`
}

// MarshalBundle serializes a bundle to CBOR bytes.
func MarshalBundle(b *Bundle) ([]byte, error) {
	return cborEncMode.Marshal(b)
}

// UnmarshalBundle deserializes a bundle from CBOR bytes.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal bundle: %w", err)
	}
	return &b, nil
}

// MarshalDump serializes a dump to CBOR bytes.
func MarshalDump(d *Dump) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalDump deserializes a dump from CBOR bytes.
func UnmarshalDump(data []byte) (*Dump, error) {
	var d Dump
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal dump: %w", err)
	}
	return &d, nil
}
