package vm

// Register identifies one slot of the VM register file.
type Register byte

const (
	// General purpose
	REG_R0 Register = iota
	REG_R1
	REG_R2
	REG_R3
	REG_R4
	REG_R5
	REG_R6
	REG_R7

	// Machine state
	REG_BP // Frame base pointer
	REG_SP // Stack pointer
	REG_IP // Instruction pointer
	REG_FL // Flags
	REG_RV // Call return value

	registerCount // Must be last
)

var registerNames = [registerCount]string{
	REG_R0: "R0", REG_R1: "R1", REG_R2: "R2", REG_R3: "R3",
	REG_R4: "R4", REG_R5: "R5", REG_R6: "R6", REG_R7: "R7",
	REG_BP: "BP", REG_SP: "SP", REG_IP: "IP", REG_FL: "FL",
	REG_RV: "RV",
}

// String returns the register mnemonic.
func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return "R?"
}

// Valid reports whether the byte names a register in the file.
func (r Register) Valid() bool {
	return int(r) < int(registerCount)
}

// GeneralPurpose reports whether the register is one of R0..R7.
func (r Register) GeneralPurpose() bool {
	return r <= REG_R7
}
