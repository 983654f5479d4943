package bytecode

import "testing"

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02X has no name", byte(op))
		}
		if info.OperandLen < 0 || info.OperandLen > 2 {
			t.Errorf("%s: OperandLen = %d out of range", info.Name, info.OperandLen)
		}
	}
}

func TestOpcodeNamesUnique(t *testing.T) {
	seen := make(map[string]Opcode)
	for _, op := range AllOpcodes() {
		name := op.String()
		if prev, ok := seen[name]; ok {
			t.Errorf("opcodes 0x%02X and 0x%02X share name %q", byte(prev), byte(op), name)
		}
		seen[name] = op
	}
}

func TestUnknownOpcode(t *testing.T) {
	op := Opcode(0xEE)
	info := GetOpcodeInfo(op)
	if info.Name != "UNKNOWN(0xEE)" {
		t.Errorf("unknown opcode name = %q", info.Name)
	}
}

func TestOperandLengths(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpConstant, 2},
		{OpGetLocal, 1},
		{OpSetLocal, 1},
		{OpGetGlobal, 2},
		{OpDefineGlobal, 2},
		{OpSetGlobal, 2},
		{OpJump, 2},
		{OpJumpIfFalse, 2},
		{OpLoop, 2},
		{OpCall, 1},
		{OpAdd, 0},
		{OpReturn, 0},
		{OpPrint, 0},
	}
	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s: OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
		if got := tt.op.InstructionLen(); got != tt.want+1 {
			t.Errorf("%s: InstructionLen() = %d, want %d", tt.op, got, tt.want+1)
		}
	}
}

func TestIsJump(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpJumpIfFalse, OpLoop} {
		if !op.IsJump() {
			t.Errorf("%s: IsJump() = false", op)
		}
	}
	for _, op := range []Opcode{OpCall, OpConstant, OpReturn} {
		if op.IsJump() {
			t.Errorf("%s: IsJump() = true", op)
		}
	}
}
