package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

// compileChunk compiles source that must be error-free and returns the
// top-level chunk.
func compileChunk(t *testing.T, source string) *FunctionObject {
	t.Helper()
	fn, errs := Compile(source, NewInterner())
	if errs != nil {
		t.Fatalf("compile failed:\n%s", errs.Error())
	}
	return fn
}

// opcodesOf walks the code section and returns the opcode sequence,
// skipping operand bytes.
func opcodesOf(c *Chunk) []Opcode {
	var ops []Opcode
	for offset := 0; offset < c.CodeLen(); {
		op := Opcode(c.Code[offset])
		ops = append(ops, op)
		offset += op.InstructionLen()
	}
	return ops
}

func opcodesEqual(a, b []Opcode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompilePrecedence(t *testing.T) {
	// Multiplication binds tighter, so its operands are emitted as a unit
	// before the addition.
	fn := compileChunk(t, "1 + 2 * 3;")
	want := []Opcode{OpConstant, OpConstant, OpConstant, OpMultiply, OpAdd, OpPop, OpNil, OpReturn}
	if got := opcodesOf(fn.Chunk); !opcodesEqual(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
}

func TestCompileGrouping(t *testing.T) {
	fn := compileChunk(t, "(1 + 2) * 3;")
	want := []Opcode{OpConstant, OpConstant, OpAdd, OpConstant, OpMultiply, OpPop, OpNil, OpReturn}
	if got := opcodesOf(fn.Chunk); !opcodesEqual(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
}

func TestCompileComparisonSynthesis(t *testing.T) {
	// >=, <= and != have no dedicated opcodes; they compile to the
	// opposite comparison plus NOT.
	tests := []struct {
		source string
		want   []Opcode
	}{
		{"1 >= 2;", []Opcode{OpConstant, OpConstant, OpLess, OpNot, OpPop, OpNil, OpReturn}},
		{"1 <= 2;", []Opcode{OpConstant, OpConstant, OpGreater, OpNot, OpPop, OpNil, OpReturn}},
		{"1 != 2;", []Opcode{OpConstant, OpConstant, OpEqual, OpNot, OpPop, OpNil, OpReturn}},
	}
	for _, tt := range tests {
		fn := compileChunk(t, tt.source)
		if got := opcodesOf(fn.Chunk); !opcodesEqual(got, tt.want) {
			t.Errorf("%s: opcodes = %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestCompileConstantDedup(t *testing.T) {
	fn := compileChunk(t, `print "hi" + "hi";`)
	if n := fn.Chunk.ConstantCount(); n != 1 {
		t.Errorf("ConstantCount() = %d, want 1", n)
	}
}

func TestCompileLocalSlots(t *testing.T) {
	// Slot 0 is reserved; the first declared local resolves to slot 1 and
	// is popped when its scope closes.
	fn := compileChunk(t, "{ var a = 1; print a; }")
	want := []Opcode{OpConstant, OpGetLocal, OpPrint, OpPop, OpNil, OpReturn}
	if got := opcodesOf(fn.Chunk); !opcodesEqual(got, want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	// OpGetLocal's operand is the byte after the 3-byte OpConstant.
	if slot := fn.Chunk.Code[4]; slot != 1 {
		t.Errorf("local slot = %d, want 1", slot)
	}
}

func TestCompileGlobalsByName(t *testing.T) {
	fn := compileChunk(t, "var a = 1; print a;")
	want := []Opcode{OpConstant, OpDefineGlobal, OpGetGlobal, OpPrint, OpNil, OpReturn}
	if got := opcodesOf(fn.Chunk); !opcodesEqual(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
}

func TestCompileVarWithoutInitializer(t *testing.T) {
	fn := compileChunk(t, "var a;")
	want := []Opcode{OpNil, OpDefineGlobal, OpNil, OpReturn}
	if got := opcodesOf(fn.Chunk); !opcodesEqual(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
}

func TestCompileFunctionConstant(t *testing.T) {
	fn := compileChunk(t, "fun add(a, b) { return a + b; }")

	var nested *FunctionObject
	for _, v := range fn.Chunk.Constants {
		if f, ok := v.AsFunction(); ok {
			nested = f
		}
	}
	if nested == nil {
		t.Fatal("no function constant in top-level pool")
	}
	if nested.Arity != 2 {
		t.Errorf("Arity = %d, want 2", nested.Arity)
	}
	if nested.Name == nil || nested.Name.Chars != "add" {
		t.Errorf("Name = %v, want add", nested.Name)
	}

	// Parameters are locals: a in slot 1, b in slot 2.
	want := []Opcode{OpGetLocal, OpGetLocal, OpAdd, OpReturn, OpNil, OpReturn}
	if got := opcodesOf(nested.Chunk); !opcodesEqual(got, want) {
		t.Errorf("body opcodes = %v, want %v", got, want)
	}
}

func TestCompileImplicitReturn(t *testing.T) {
	fn := compileChunk(t, "fun f() {}")
	nested, _ := fn.Chunk.Constants[1].AsFunction()
	if nested == nil {
		nested, _ = fn.Chunk.Constants[0].AsFunction()
	}
	if nested == nil {
		t.Fatal("no function constant found")
	}
	want := []Opcode{OpNil, OpReturn}
	if got := opcodesOf(nested.Chunk); !opcodesEqual(got, want) {
		t.Errorf("opcodes = %v, want %v", got, want)
	}
}

func TestCompileLineAttribution(t *testing.T) {
	fn := compileChunk(t, "1;\n2;\n")
	c := fn.Chunk
	if c.Line(0) != 1 {
		t.Errorf("first constant on line %d, want 1", c.Line(0))
	}
	// Second statement starts after OpConstant(3) + OpPop(1).
	if c.Line(4) != 2 {
		t.Errorf("second constant on line %d, want 2", c.Line(4))
	}
}

func TestCompileDeterministic(t *testing.T) {
	source := `
		fun fib(n) {
			if (n < 2) return n;
			return fib(n - 1) + fib(n - 2);
		}
		print fib(10);
	`
	a := compileChunk(t, source)
	b := compileChunk(t, source)

	if !bytes.Equal(a.Chunk.Code, b.Chunk.Code) {
		t.Error("compiling the same source twice produced different code")
	}
	if a.Chunk.ConstantCount() != b.Chunk.ConstantCount() {
		t.Errorf("constant counts differ: %d vs %d",
			a.Chunk.ConstantCount(), b.Chunk.ConstantCount())
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"missing semicolon", "print 1", "expected ';' after value"},
		{"missing expression", "print ;", "expected expression"},
		{"invalid assignment target", "1 = 2;", "invalid assignment target"},
		{"grouped assignment target", "var a; var b; (a) = b;", "invalid assignment target"},
		{"top-level return", "return 1;", "cannot return from top-level code"},
		{"self-referential initializer", "{ var a = a; }", "cannot read local variable in its own initializer"},
		{"duplicate local", "{ var a = 1; var a = 2; }", "already declared in this scope"},
		{"unterminated string", `print "abc`, "unterminated string"},
		{"missing paren", "if (true { print 1; }", "expected ')' after condition"},
		{"missing variable name", "var = 1;", "expected variable name"},
	}

	for _, tt := range tests {
		fn, errs := Compile(tt.source, NewInterner())
		if fn != nil {
			t.Errorf("%s: compile succeeded, want failure", tt.name)
			continue
		}
		if len(errs) == 0 {
			t.Errorf("%s: no diagnostics", tt.name)
			continue
		}
		if !strings.Contains(errs.Error(), tt.message) {
			t.Errorf("%s: diagnostics %q do not mention %q", tt.name, errs.Error(), tt.message)
		}
	}
}

func TestCompileErrorFormat(t *testing.T) {
	_, errs := Compile("print 1", NewInterner())
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if got := errs[0].Error(); got != "[line 1] error at end: expected ';' after value" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCompileRecoversAtStatementBoundary(t *testing.T) {
	// One diagnostic per broken statement, not a cascade from the first.
	_, errs := Compile("print ;\nprint ;\nprint 3;", NewInterner())
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2:\n%s", len(errs), errs.Error())
	}
}

func TestCompileErrorLine(t *testing.T) {
	_, errs := Compile("var a = 1;\nvar b = ;\n", NewInterner())
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if errs[0].Line != 2 {
		t.Errorf("error on line %d, want 2", errs[0].Line)
	}
}
