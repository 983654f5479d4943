package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a
// name header, a constant pool dump, and one row per instruction with its
// source line.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, v := range c.Constants {
			display := v.String()
			if v.Type == ValObject {
				if s, ok := v.AsString(); ok {
					display = fmt.Sprintf("%q", s.Chars)
				}
			}
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	offset := 0
	lastLine := -1
	for offset < len(c.Code) {
		row, instrLen := c.disassembleInstruction(offset)

		line := c.Line(offset)
		if line == lastLine {
			sb.WriteString(fmt.Sprintf("%04X     |  %s\n", offset, row))
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %4d  %s\n", offset, line, row))
			lastLine = line
		}

		offset += instrLen
	}

	return sb.String()
}

// DisassembleInstruction writes one formatted instruction row to w. The
// VM's trace mode uses this per dispatched instruction.
func DisassembleInstruction(w io.Writer, c *Chunk, offset int) {
	row, _ := c.disassembleInstruction(offset)
	fmt.Fprintf(w, "%04X  %4d  %s\n", offset, c.Line(offset), row)
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpConstant:
		idx := c.readUint16(offset + 1)
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantComment(idx)), 3

	case OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		idx := c.readUint16(offset + 1)
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantComment(idx)), 3

	case OpGetLocal, OpSetLocal:
		slot := c.Code[offset+1]
		return fmt.Sprintf("%s %d", info.Name, slot), 2

	case OpJump, OpJumpIfFalse:
		delta := int(c.readUint16(offset + 1))
		target := offset + 3 + delta
		return fmt.Sprintf("%s +%d (-> %04X)", info.Name, delta, target), 3

	case OpLoop:
		delta := int(c.readUint16(offset + 1))
		target := offset + 3 - delta
		return fmt.Sprintf("%s -%d (-> %04X)", info.Name, delta, target), 3

	case OpCall:
		argc := c.Code[offset+1]
		return fmt.Sprintf("%s %d", info.Name, argc), 2

	default:
		return info.Name, op.InstructionLen()
	}
}

func (c *Chunk) constantComment(idx uint16) string {
	if int(idx) >= len(c.Constants) {
		return "<out of range>"
	}
	v := c.Constants[idx]
	if s, ok := v.AsString(); ok {
		display := s.Chars
		if len(display) > 20 {
			display = display[:17] + "..."
		}
		return fmt.Sprintf("%q", display)
	}
	return v.String()
}

// DisassembleProgram disassembles a top-level function and, recursively,
// every function nested in its constant pools.
func DisassembleProgram(fn *FunctionObject) string {
	var sb strings.Builder
	disassembleInto(&sb, fn)
	return sb.String()
}

func disassembleInto(sb *strings.Builder, fn *FunctionObject) {
	sb.WriteString(fn.Chunk.DisassembleWithName(fn.String()))
	for _, v := range fn.Chunk.Constants {
		if nested, ok := v.AsFunction(); ok {
			sb.WriteString("\n")
			disassembleInto(sb, nested)
		}
	}
}
