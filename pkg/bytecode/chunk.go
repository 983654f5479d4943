package bytecode

import (
	encbinary "encoding/binary"
	"errors"
)

const (
	// MaxConstants is the largest constant pool a chunk can hold, bounded
	// by the u16 operand of OpConstant and the global-name instructions.
	MaxConstants = 1 << 16

	// MaxJump is the farthest a single jump can travel, bounded by the
	// u16 operand of the jump instructions.
	MaxJump = 1<<16 - 1
)

// ErrTooManyConstants is returned when a chunk's constant pool overflows.
var ErrTooManyConstants = errors.New("too many constants in one chunk")

// ErrJumpTooLarge is returned when a jump target is farther than a u16
// operand can encode.
var ErrJumpTooLarge = errors.New("too much code to jump over")

// ErrLoopTooLarge is returned when a loop body is farther back than a u16
// operand can encode.
var ErrLoopTooLarge = errors.New("loop body too large")

// Chunk is an immutable-after-compilation bytecode buffer: instruction
// bytes, a constant pool, and a parallel line table for diagnostics.
// Every operand that indexes the pool or a local slot is validated when
// it is emitted, never at runtime.
type Chunk struct {
	Code      []byte
	Constants []Value
	lines     Lines
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 8),
	}
}

// Write appends one raw byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.lines.Push(line)
}

// Emit appends a single-byte instruction and returns its offset.
func (c *Chunk) Emit(op Opcode, line int) int {
	offset := len(c.Code)
	c.Write(byte(op), line)
	return offset
}

// EmitWithOperands appends an instruction with operand bytes and returns
// its offset.
func (c *Chunk) EmitWithOperands(op Opcode, line int, operands ...byte) int {
	offset := c.Emit(op, line)
	for _, b := range operands {
		c.Write(b, line)
	}
	return offset
}

// AddConstant appends a value to the constant pool and returns its index.
// Equal constants are deduplicated: interned strings and functions by
// identity, numbers by value.
func (c *Chunk) AddConstant(v Value) (uint16, error) {
	for i, existing := range c.Constants {
		if existing.Equals(v) {
			return uint16(i), nil
		}
	}
	if len(c.Constants) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, v)
	return idx, nil
}

// GetConstant returns the constant at the given index.
func (c *Chunk) GetConstant(index uint16) Value {
	return c.Constants[index]
}

// EmitJump emits a forward jump with a placeholder offset and returns the
// offset of the placeholder bytes for later patching.
func (c *Chunk) EmitJump(op Opcode, line int) int {
	c.Emit(op, line)
	offset := len(c.Code)
	c.Write(0xFF, line)
	c.Write(0xFF, line)
	return offset
}

// PatchJump patches a placeholder emitted by EmitJump so the jump lands on
// the current end of code.
func (c *Chunk) PatchJump(placeholderOffset int) error {
	// The delta is measured from just after the 2-byte operand.
	delta := len(c.Code) - (placeholderOffset + 2)
	if delta > MaxJump {
		return ErrJumpTooLarge
	}
	encbinary.BigEndian.PutUint16(c.Code[placeholderOffset:], uint16(delta))
	return nil
}

// EmitLoop emits a backward jump to loopStart.
func (c *Chunk) EmitLoop(loopStart, line int) error {
	c.Emit(OpLoop, line)
	// +2 accounts for the operand of the OpLoop instruction itself.
	delta := len(c.Code) - loopStart + 2
	if delta > MaxJump {
		return ErrLoopTooLarge
	}
	c.Write(byte(delta>>8), line)
	c.Write(byte(delta), line)
	return nil
}

// Line returns the source line for the code byte at the given offset.
func (c *Chunk) Line(offset int) int {
	return c.lines.Get(offset)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// readUint16 reads a big-endian u16 operand from the code at the given offset.
func (c *Chunk) readUint16(offset int) uint16 {
	if offset+1 >= len(c.Code) {
		return 0
	}
	return encbinary.BigEndian.Uint16(c.Code[offset:])
}
