package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Constants and stack (0x00-0x0F)
	// ========================================================================

	OpConstant Opcode = 0x00 // Push constant from pool: OpConstant <index:u16>
	OpNil      Opcode = 0x01 // Push nil
	OpTrue     Opcode = 0x02 // Push true
	OpFalse    Opcode = 0x03 // Push false
	OpPop      Opcode = 0x04 // Pop top of stack

	// ========================================================================
	// Variables (0x10-0x1F)
	// ========================================================================

	OpGetLocal     Opcode = 0x10 // Push local slot: OpGetLocal <slot:u8>
	OpSetLocal     Opcode = 0x11 // Store top of stack to local: OpSetLocal <slot:u8>
	OpGetGlobal    Opcode = 0x12 // Push global by name: OpGetGlobal <name:u16>
	OpDefineGlobal Opcode = 0x13 // Define global from top of stack: OpDefineGlobal <name:u16>
	OpSetGlobal    Opcode = 0x14 // Store top of stack to existing global: OpSetGlobal <name:u16>

	// ========================================================================
	// Comparison (0x20-0x2F)
	// ========================================================================

	OpEqual   Opcode = 0x20 // Pop two, push a == b
	OpGreater Opcode = 0x21 // Pop two, push a > b (numbers only)
	OpLess    Opcode = 0x22 // Pop two, push a < b (numbers only)

	// ========================================================================
	// Arithmetic and logic (0x30-0x3F)
	// ========================================================================

	OpAdd      Opcode = 0x30 // Pop two, push sum (numbers) or concatenation (strings)
	OpSubtract Opcode = 0x31 // Pop two, push difference (a - b where b is TOS)
	OpMultiply Opcode = 0x32 // Pop two, push product
	OpDivide   Opcode = 0x33 // Pop two, push quotient; zero divisor is a runtime error
	OpModulo   Opcode = 0x34 // Pop two, push remainder; zero divisor is a runtime error
	OpNot      Opcode = 0x35 // Replace top of stack with its logical negation
	OpNegate   Opcode = 0x36 // Negate numeric top of stack

	// ========================================================================
	// Control flow (0x40-0x4F)
	// ========================================================================

	OpJump        Opcode = 0x40 // Unconditional forward jump: OpJump <delta:u16>
	OpJumpIfFalse Opcode = 0x41 // Forward jump if top is falsy (peek): OpJumpIfFalse <delta:u16>
	OpLoop        Opcode = 0x42 // Backward jump: OpLoop <delta:u16>

	// ========================================================================
	// Calls and output (0x50-0x5F)
	// ========================================================================

	OpCall   Opcode = 0x50 // Call value below argc args: OpCall <argc:u8>
	OpReturn Opcode = 0x51 // Return top of stack from the current frame
	OpPrint  Opcode = 0x52 // Pop and write canonical form plus newline to the sink
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 0, 1, 2},
	OpNil:      {"NIL", 0, 1, 0},
	OpTrue:     {"TRUE", 0, 1, 0},
	OpFalse:    {"FALSE", 0, 1, 0},
	OpPop:      {"POP", 1, 0, 0},

	OpGetLocal:     {"GET_LOCAL", 0, 1, 1},
	OpSetLocal:     {"SET_LOCAL", 0, 0, 1}, // assignment is an expression, value stays on the stack
	OpGetGlobal:    {"GET_GLOBAL", 0, 1, 2},
	OpDefineGlobal: {"DEFINE_GLOBAL", 1, 0, 2},
	OpSetGlobal:    {"SET_GLOBAL", 0, 0, 2},

	OpEqual:   {"EQUAL", 2, 1, 0},
	OpGreater: {"GREATER", 2, 1, 0},
	OpLess:    {"LESS", 2, 1, 0},

	OpAdd:      {"ADD", 2, 1, 0},
	OpSubtract: {"SUBTRACT", 2, 1, 0},
	OpMultiply: {"MULTIPLY", 2, 1, 0},
	OpDivide:   {"DIVIDE", 2, 1, 0},
	OpModulo:   {"MODULO", 2, 1, 0},
	OpNot:      {"NOT", 1, 1, 0},
	OpNegate:   {"NEGATE", 1, 1, 0},

	OpJump:        {"JUMP", 0, 0, 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 0, 0, 2}, // peeks, compiler emits the pop
	OpLoop:        {"LOOP", 0, 0, 2},

	OpCall:   {"CALL", -1, 1, 1},
	OpReturn: {"RETURN", 1, 0, 0},
	OpPrint:  {"PRINT", 1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpLoop
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
