package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated indicates a bytecode blob that ends in the middle of an
// instruction.
var ErrTruncated = errors.New("truncated bytecode")

// ErrUnknownOpcode indicates a raw byte with no canonical mapping.
var ErrUnknownOpcode = errors.New("unknown opcode byte")

// Instruction is one decoded, still-flat VM instruction.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand any // Register, int32, int64 or uint32 token; nil for none
}

func (i Instruction) String() string {
	if i.Operand == nil {
		return i.Op.String()
	}
	return fmt.Sprintf("%s %v", i.Op, i.Operand)
}

// OpcodeMap translates the shuffled raw opcode bytes of one build back
// to canonical opcodes. Identity returns the canonical self-mapping
// used by unshuffled fixtures.
type OpcodeMap map[byte]Opcode

// Identity returns the canonical self-mapping.
func Identity() OpcodeMap {
	m := make(OpcodeMap, int(opcodeCount))
	for op := Opcode(0); op < opcodeCount; op++ {
		m[byte(op)] = op
	}
	return m
}

// Decode translates a raw bytecode blob into flat instructions using
// the build's opcode map.
func Decode(blob []byte, remap OpcodeMap) ([]Instruction, error) {
	if remap == nil {
		remap = Identity()
	}
	var out []Instruction
	offset := 0
	for offset < len(blob) {
		raw := blob[offset]
		op, ok := remap[raw]
		if !ok {
			return nil, fmt.Errorf("%w: 0x%02x at offset %d", ErrUnknownOpcode, raw, offset)
		}
		ins := Instruction{Offset: offset, Op: op}
		offset++

		switch OperandKindOf(op) {
		case OperandRegister:
			if offset+1 > len(blob) {
				return nil, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, ins.Offset)
			}
			reg := Register(blob[offset])
			if !reg.Valid() {
				return nil, fmt.Errorf("invalid register 0x%02x for %s at offset %d", blob[offset], op, ins.Offset)
			}
			ins.Operand = reg
			offset++

		case OperandI4:
			if offset+4 > len(blob) {
				return nil, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, ins.Offset)
			}
			ins.Operand = int32(binary.LittleEndian.Uint32(blob[offset:]))
			offset += 4

		case OperandI8:
			if offset+8 > len(blob) {
				return nil, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, ins.Offset)
			}
			ins.Operand = int64(binary.LittleEndian.Uint64(blob[offset:]))
			offset += 8

		case OperandToken:
			if offset+4 > len(blob) {
				return nil, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, ins.Offset)
			}
			ins.Operand = binary.LittleEndian.Uint32(blob[offset:])
			offset += 4
		}
		out = append(out, ins)
	}
	return out, nil
}

// Encode is the inverse of Decode over canonical opcodes. Fixtures and
// round-trip tests use it; shipped blobs are produced by obfuscators.
func Encode(instructions []Instruction) []byte {
	var out []byte
	for _, ins := range instructions {
		out = append(out, byte(ins.Op))
		switch OperandKindOf(ins.Op) {
		case OperandRegister:
			out = append(out, byte(ins.Operand.(Register)))
		case OperandI4:
			out = binary.LittleEndian.AppendUint32(out, uint32(ins.Operand.(int32)))
		case OperandI8:
			out = binary.LittleEndian.AppendUint64(out, uint64(ins.Operand.(int64)))
		case OperandToken:
			out = binary.LittleEndian.AppendUint32(out, ins.Operand.(uint32))
		}
	}
	return out
}
