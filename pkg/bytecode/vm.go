package bytecode

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"
)

const (
	// DefaultFrameDepth is the default call depth limit. Exceeding it is a
	// "stack overflow" runtime error.
	DefaultFrameDepth = 64

	// DefaultStackSize is the initial value stack capacity. The value
	// stack grows on demand; only frame depth is a hard limit.
	DefaultStackSize = DefaultFrameDepth * maxLocals
)

// RuntimeError is a fatal execution error: the VM unwinds completely and
// reports the failing line plus a call trace, innermost frame first.
type RuntimeError struct {
	Message string
	Line    int
	Trace   []string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
}

// CallFrame is one activation record: the executing function, its
// instruction pointer, and the stack slot where its window begins
// (slot 0 of the window holds the function value itself).
type CallFrame struct {
	function *FunctionObject
	ip       int
	base     int
}

// VM executes compiled function objects. It owns one contiguous value
// stack shared by all frames and the global variable table. A VM may run
// many compiled units in sequence; globals and interned strings persist
// across runs, which is what makes the REPL work.
type VM struct {
	interner *Interner

	stack []Value
	sp    int

	frames     []CallFrame
	frameCount int

	globals map[*StringObject]Value

	out      io.Writer
	trace    bool
	traceOut io.Writer

	log commonlog.Logger
}

// Option configures a VM.
type Option func(*VM)

// WithOutput redirects the print statement's sink.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithTrace enables per-instruction execution tracing to w.
func WithTrace(w io.Writer) Option {
	return func(vm *VM) {
		vm.trace = true
		vm.traceOut = w
	}
}

// WithFrameDepth overrides the call depth limit.
func WithFrameDepth(n int) Option {
	return func(vm *VM) { vm.frames = make([]CallFrame, n) }
}

// WithStackSize overrides the initial value stack capacity.
func WithStackSize(n int) Option {
	return func(vm *VM) { vm.stack = make([]Value, n) }
}

// WithNatives registers additional host functions as globals, on top of
// the standard set.
func WithNatives(defs []NativeDef) Option {
	return func(vm *VM) { vm.defineNatives(defs) }
}

// NewVM creates a VM sharing the given interner with the compiler that
// produced (or will produce) the code it runs. The standard natives are
// registered before any user code can execute.
func NewVM(interner *Interner, opts ...Option) *VM {
	vm := &VM{
		interner: interner,
		stack:    make([]Value, DefaultStackSize),
		frames:   make([]CallFrame, DefaultFrameDepth),
		globals:  make(map[*StringObject]Value),
		out:      os.Stdout,
		traceOut: os.Stderr,
		log:      commonlog.GetLogger("golox.vm"),
	}
	vm.defineNatives(StdNatives())
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

func (vm *VM) defineNatives(defs []NativeDef) {
	for _, def := range defs {
		name := vm.interner.Intern(def.Name)
		vm.globals[name] = Obj(&NativeObject{Name: def.Name, Arity: def.Arity, Fn: def.Fn})
	}
}

// Interpret runs a compiled top-level function to completion. On failure
// the returned error is a *RuntimeError and the VM's stack has been
// reset, so the VM stays usable for the next unit.
func (vm *VM) Interpret(fn *FunctionObject) error {
	vm.log.Debugf("interpreting %s (%d bytes of code)", fn, fn.Chunk.CodeLen())

	vm.sp = 0
	vm.frameCount = 0
	vm.push(Obj(fn))
	if err := vm.callFunction(fn, 0); err != nil {
		vm.resetStack()
		return err
	}

	if err := vm.run(); err != nil {
		vm.resetStack()
		return err
	}
	return nil
}

// --- stack primitives ---

func (vm *VM) push(v Value) {
	if vm.sp == len(vm.stack) {
		vm.stack = append(vm.stack, v)
		vm.sp++
		return
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
}

// --- error construction ---

// runtimeError builds the error for the instruction at opOffset in the
// current frame, with a call trace walked outward from the failure.
func (vm *VM) runtimeError(opOffset int, format string, args ...any) *RuntimeError {
	frame := &vm.frames[vm.frameCount-1]
	line := frame.function.Chunk.Line(opOffset)

	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		where := "script"
		if f.function.Name != nil {
			where = f.function.Name.Chars + "()"
		}
		at := f.ip - 1
		if i == vm.frameCount-1 {
			at = opOffset
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", f.function.Chunk.Line(at), where))
	}

	return &RuntimeError{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Trace:   trace,
	}
}

// --- calls ---

func (vm *VM) callValue(opOffset int, callee Value, argc int) error {
	if fn, ok := callee.AsFunction(); ok {
		return vm.callAt(opOffset, fn, argc)
	}
	if native, ok := callee.AsNative(); ok {
		if argc != native.Arity {
			return vm.runtimeError(opOffset, "expected %d arguments but got %d", native.Arity, argc)
		}
		args := vm.stack[vm.sp-argc : vm.sp]
		result, err := native.Fn(args)
		if err != nil {
			return vm.runtimeError(opOffset, "%s: %s", native.Name, err)
		}
		vm.sp -= argc + 1
		vm.push(result)
		return nil
	}
	return vm.runtimeError(opOffset, "can only call functions")
}

func (vm *VM) callAt(opOffset int, fn *FunctionObject, argc int) error {
	if argc != fn.Arity {
		return vm.runtimeError(opOffset, "expected %d arguments but got %d", fn.Arity, argc)
	}
	if vm.frameCount == len(vm.frames) {
		return vm.runtimeError(opOffset, "stack overflow")
	}
	vm.frames[vm.frameCount] = CallFrame{function: fn, ip: 0, base: vm.sp - argc - 1}
	vm.frameCount++
	return nil
}

// callFunction starts the initial frame, before any dispatch has run.
func (vm *VM) callFunction(fn *FunctionObject, argc int) error {
	if vm.frameCount == len(vm.frames) {
		return &RuntimeError{Message: "stack overflow", Line: fn.Chunk.Line(0)}
	}
	vm.frames[vm.frameCount] = CallFrame{function: fn, ip: 0, base: vm.sp - argc - 1}
	vm.frameCount++
	return nil
}

// --- dispatch ---

func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.function.Chunk.Code[frame.ip]
		frame.ip++
		return b
	}
	readUint16 := func() uint16 {
		hi := readByte()
		lo := readByte()
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func() Value {
		return frame.function.Chunk.GetConstant(readUint16())
	}
	readName := func() *StringObject {
		s, _ := readConstant().AsString()
		return s
	}

	for {
		opOffset := frame.ip

		if vm.trace {
			vm.traceInstruction(frame, opOffset)
		}

		op := Opcode(readByte())
		switch op {

		case OpConstant:
			vm.push(readConstant())
		case OpNil:
			vm.push(Nil())
		case OpTrue:
			vm.push(Bool(true))
		case OpFalse:
			vm.push(Bool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[frame.base+slot])
		case OpSetLocal:
			slot := int(readByte())
			vm.stack[frame.base+slot] = vm.peek(0)
		case OpGetGlobal:
			name := readName()
			v, ok := vm.globals[name]
			if !ok {
				return vm.runtimeError(opOffset, "undefined variable '%s'", name.Chars)
			}
			vm.push(v)
		case OpDefineGlobal:
			name := readName()
			vm.globals[name] = vm.peek(0)
			vm.pop()
		case OpSetGlobal:
			name := readName()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeError(opOffset, "undefined variable '%s'", name.Chars)
			}
			vm.globals[name] = vm.peek(0)

		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(a.Equals(b)))
		case OpGreater, OpLess:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				sym := ">"
				if op == OpLess {
					sym = "<"
				}
				return vm.runtimeError(opOffset, "operands to '%s' must be numbers", sym)
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			if op == OpGreater {
				vm.push(Bool(a > b))
			} else {
				vm.push(Bool(a < b))
			}

		case OpAdd:
			if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(Number(a + b))
				break
			}
			bs, bok := vm.peek(0).AsString()
			as, aok := vm.peek(1).AsString()
			if aok && bok {
				vm.pop()
				vm.pop()
				vm.push(Obj(vm.interner.Intern(as.Chars + bs.Chars)))
				break
			}
			return vm.runtimeError(opOffset, "operands to '+' must be two numbers or two strings")

		case OpSubtract, OpMultiply, OpDivide, OpModulo:
			if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
				return vm.runtimeError(opOffset, "operands to '%s' must be numbers", arithmeticSymbol(op))
			}
			b := vm.pop().AsNumber()
			a := vm.pop().AsNumber()
			switch op {
			case OpSubtract:
				vm.push(Number(a - b))
			case OpMultiply:
				vm.push(Number(a * b))
			case OpDivide:
				if b == 0 {
					return vm.runtimeError(opOffset, "division by zero")
				}
				vm.push(Number(a / b))
			case OpModulo:
				if b == 0 {
					return vm.runtimeError(opOffset, "modulo by zero")
				}
				vm.push(Number(math.Mod(a, b)))
			}

		case OpNot:
			vm.push(Bool(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError(opOffset, "operand to '-' must be a number")
			}
			vm.push(Number(-vm.pop().AsNumber()))

		case OpJump:
			delta := int(readUint16())
			frame.ip += delta
		case OpJumpIfFalse:
			delta := int(readUint16())
			if vm.peek(0).IsFalsey() {
				frame.ip += delta
			}
		case OpLoop:
			delta := int(readUint16())
			frame.ip -= delta

		case OpCall:
			argc := int(readByte())
			if err := vm.callValue(opOffset, vm.peek(argc), argc); err != nil {
				return err
			}
			frame = &vm.frames[vm.frameCount-1]

		case OpReturn:
			result := vm.pop()
			returning := frame
			vm.frameCount--
			if vm.frameCount == 0 {
				// Discard the script function value itself.
				vm.pop()
				return nil
			}
			vm.sp = returning.base
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case OpPrint:
			fmt.Fprintln(vm.out, vm.pop().String())

		default:
			return vm.runtimeError(opOffset, "unknown opcode 0x%02X", byte(op))
		}
	}
}

func arithmeticSymbol(op Opcode) string {
	switch op {
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpModulo:
		return "%"
	}
	return "?"
}

// traceInstruction prints the current stack window and the instruction
// about to execute, in disassembly format.
func (vm *VM) traceInstruction(frame *CallFrame, offset int) {
	fmt.Fprint(vm.traceOut, "          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(vm.traceOut, "[ %s ]", vm.stack[i])
	}
	fmt.Fprintln(vm.traceOut)
	DisassembleInstruction(vm.traceOut, frame.function.Chunk, offset)
}

// GlobalNames returns the names of all defined globals, for REPL
// introspection. Order is unspecified.
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name.Chars)
	}
	return names
}
