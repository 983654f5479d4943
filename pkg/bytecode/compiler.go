package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"golox/scanner"
)

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

// CompileError is a single diagnostic with source position.
type CompileError struct {
	Line    int
	At      string // the offending lexeme, or "" at end of input
	Message string
}

func (e CompileError) Error() string {
	if e.At == "" {
		return fmt.Sprintf("[line %d] error at end: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] error at '%s': %s", e.Line, e.At, e.Message)
}

// CompileErrors is the full diagnostic list for one translation unit.
type CompileErrors []CompileError

func (errs CompileErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// ---------------------------------------------------------------------------
// Precedence table
// ---------------------------------------------------------------------------

// Precedence is a binding power for the expression parser, lowest first.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * / %
	PrecUnary                 // ! -
	PrecCall                  // ()
	PrecPrimary
)

type parseFn func(p *parser, canAssign bool)

// parseRule pairs a token type with its prefix rule, infix rule, and the
// precedence of the infix form.
type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[scanner.TokenType]parseRule

func init() {
	rules = map[scanner.TokenType]parseRule{
		scanner.TokenLParen:       {grouping, call, PrecCall},
		scanner.TokenMinus:        {unary, binary, PrecTerm},
		scanner.TokenPlus:         {nil, binary, PrecTerm},
		scanner.TokenSlash:        {nil, binary, PrecFactor},
		scanner.TokenStar:         {nil, binary, PrecFactor},
		scanner.TokenPercent:      {nil, binary, PrecFactor},
		scanner.TokenBang:         {unary, nil, PrecNone},
		scanner.TokenBangEqual:    {nil, binary, PrecEquality},
		scanner.TokenEqualEqual:   {nil, binary, PrecEquality},
		scanner.TokenGreater:      {nil, binary, PrecComparison},
		scanner.TokenGreaterEqual: {nil, binary, PrecComparison},
		scanner.TokenLess:         {nil, binary, PrecComparison},
		scanner.TokenLessEqual:    {nil, binary, PrecComparison},
		scanner.TokenIdentifier:   {variable, nil, PrecNone},
		scanner.TokenString:       {stringLiteral, nil, PrecNone},
		scanner.TokenNumber:       {number, nil, PrecNone},
		scanner.TokenAnd:          {nil, andExpr, PrecAnd},
		scanner.TokenOr:           {nil, orExpr, PrecOr},
		scanner.TokenTrue:         {literal, nil, PrecNone},
		scanner.TokenFalse:        {literal, nil, PrecNone},
		scanner.TokenNil:          {literal, nil, PrecNone},
	}
}

func getRule(tt scanner.TokenType) parseRule {
	return rules[tt]
}

// ---------------------------------------------------------------------------
// Function compilation contexts
// ---------------------------------------------------------------------------

const (
	// maxLocals bounds the locals of one function, including slot 0 which
	// is reserved for the function value itself.
	maxLocals = 256

	// maxArgs bounds parameter and argument counts (u8 operand of OpCall).
	maxArgs = 255
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

// localVar tracks one declared local during compilation only. It resolves
// to a fixed stack offset; the VM never looks locals up by name.
type localVar struct {
	name  string
	depth int // -1 until the initializer has run
}

// funcCompiler is the per-function compilation context. Nested function
// declarations push a child context chained to the enclosing one; the
// chain carries no variable capture, only the place to emit the finished
// function constant.
type funcCompiler struct {
	enclosing  *funcCompiler
	function   *FunctionObject
	kind       funcKind
	locals     []localVar
	scopeDepth int
}

func newFuncCompiler(enclosing *funcCompiler, kind funcKind, name *StringObject) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		function:  NewFunction(name),
		kind:      kind,
		locals:    make([]localVar, 0, 8),
	}
	// Slot 0 holds the function value being executed; giving it an empty
	// name keeps it unresolvable from user code.
	fc.locals = append(fc.locals, localVar{name: "", depth: 0})
	return fc
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// parser drives the single pass: it pulls tokens, resolves precedence, and
// emits bytecode into the current function compiler's chunk as it goes.
type parser struct {
	sc       *scanner.Scanner
	interner *Interner

	current  scanner.Token
	previous scanner.Token

	hadError  bool
	panicMode bool
	errors    CompileErrors

	compiler *funcCompiler
}

// Compile parses one translation unit into a function object wrapping the
// top-level chunk. On any error the function is nil and every collected
// diagnostic is returned; no partially-compiled code escapes.
func Compile(source string, interner *Interner) (*FunctionObject, CompileErrors) {
	p := &parser{
		sc:       scanner.New(source),
		interner: interner,
		compiler: newFuncCompiler(nil, kindScript, nil),
	}

	p.advance()
	for !p.match(scanner.TokenEOF) {
		p.declaration()
	}
	fn := p.endCompiler()

	if p.hadError {
		return nil, p.errors
	}
	return fn, nil
}

// --- token plumbing ---

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.NextToken()
		if p.current.Type != scanner.TokenError {
			return
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) consume(tt scanner.TokenType, message string) {
	if p.current.Type == tt {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) check(tt scanner.TokenType) bool {
	return p.current.Type == tt
}

func (p *parser) match(tt scanner.TokenType) bool {
	if !p.check(tt) {
		return false
	}
	p.advance()
	return true
}

// --- error reporting and panic-mode recovery ---

func (p *parser) errorAt(tok scanner.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	at := tok.Lexeme
	if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
		at = ""
	}
	p.errors = append(p.errors, CompileError{Line: tok.Line, At: at, Message: message})
}

func (p *parser) error(message string) {
	p.errorAt(p.previous, message)
}

func (p *parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

// synchronize skips tokens to the next statement boundary so one mistake
// does not cascade into a wall of diagnostics.
func (p *parser) synchronize() {
	p.panicMode = false

	for p.current.Type != scanner.TokenEOF {
		if p.previous.Type == scanner.TokenSemicolon {
			return
		}
		switch p.current.Type {
		case scanner.TokenFun, scanner.TokenVar, scanner.TokenFor,
			scanner.TokenIf, scanner.TokenWhile, scanner.TokenPrint,
			scanner.TokenReturn:
			return
		}
		p.advance()
	}
}

// --- emission helpers ---

func (p *parser) chunk() *Chunk {
	return p.compiler.function.Chunk
}

func (p *parser) emit(op Opcode) {
	p.chunk().Emit(op, p.previous.Line)
}

func (p *parser) emitWithOperands(op Opcode, operands ...byte) {
	p.chunk().EmitWithOperands(op, p.previous.Line, operands...)
}

func (p *parser) emitReturn() {
	p.emit(OpNil)
	p.emit(OpReturn)
}

func (p *parser) makeConstant(v Value) uint16 {
	idx, err := p.chunk().AddConstant(v)
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return idx
}

func (p *parser) emitConstant(v Value) {
	idx := p.makeConstant(v)
	p.emitWithOperands(OpConstant, byte(idx>>8), byte(idx))
}

func (p *parser) identifierConstant(name string) uint16 {
	return p.makeConstant(Obj(p.interner.Intern(name)))
}

func (p *parser) emitJump(op Opcode) int {
	return p.chunk().EmitJump(op, p.previous.Line)
}

func (p *parser) patchJump(offset int) {
	if err := p.chunk().PatchJump(offset); err != nil {
		p.error(err.Error())
	}
}

func (p *parser) emitLoop(loopStart int) {
	if err := p.chunk().EmitLoop(loopStart, p.previous.Line); err != nil {
		p.error(err.Error())
	}
}

func (p *parser) endCompiler() *FunctionObject {
	p.emitReturn()
	fn := p.compiler.function
	p.compiler = p.compiler.enclosing
	return fn
}

// --- scopes and locals ---

func (p *parser) beginScope() {
	p.compiler.scopeDepth++
}

func (p *parser) endScope() {
	fc := p.compiler
	fc.scopeDepth--

	// Pop exactly the locals declared in the closed scope.
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		p.emit(OpPop)
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

func (p *parser) addLocal(name string) {
	fc := p.compiler
	if len(fc.locals) >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	fc.locals = append(fc.locals, localVar{name: name, depth: -1})
}

func (p *parser) declareVariable() {
	fc := p.compiler
	if fc.scopeDepth == 0 {
		return
	}

	name := p.previous.Lexeme
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := fc.locals[i]
		if l.depth != -1 && l.depth < fc.scopeDepth {
			break
		}
		if l.name == name {
			p.error("a variable with this name is already declared in this scope")
			return
		}
	}
	p.addLocal(name)
}

// parseVariable consumes a name and declares it. It returns the constant
// pool index of the name for globals; locals need no name at runtime.
func (p *parser) parseVariable(message string) uint16 {
	p.consume(scanner.TokenIdentifier, message)

	p.declareVariable()
	if p.compiler.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *parser) markInitialized() {
	fc := p.compiler
	if fc.scopeDepth == 0 {
		return
	}
	fc.locals[len(fc.locals)-1].depth = fc.scopeDepth
}

func (p *parser) defineVariable(global uint16) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitWithOperands(OpDefineGlobal, byte(global>>8), byte(global))
}

// resolveLocal finds a local by name, innermost declaration first. The
// second return is false when the name must be treated as a global. A hit
// on a local whose initializer is still running is a compile error.
func (p *parser) resolveLocal(fc *funcCompiler, name string) (int, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].depth == -1 {
				p.error("cannot read local variable in its own initializer")
			}
			return i, true
		}
	}
	return -1, false
}

// --- declarations ---

func (p *parser) declaration() {
	switch {
	case p.match(scanner.TokenFun):
		p.funDeclaration()
	case p.match(scanner.TokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("expected variable name")

	if p.match(scanner.TokenEqual) {
		p.expression()
	} else {
		p.emit(OpNil)
	}
	p.consume(scanner.TokenSemicolon, "expected ';' after variable declaration")

	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("expected function name")
	// The name is usable inside the body, so recursion works.
	p.markInitialized()
	p.functionBody()
	p.defineVariable(global)
}

// functionBody compiles a function's parameter list and body in a child
// context, then emits the finished function as a constant in the
// enclosing chunk.
func (p *parser) functionBody() {
	p.compiler = newFuncCompiler(p.compiler, kindFunction, p.interner.Intern(p.previous.Lexeme))
	p.beginScope()

	p.consume(scanner.TokenLParen, "expected '(' after function name")
	if !p.check(scanner.TokenRParen) {
		for {
			if p.compiler.function.Arity >= maxArgs {
				p.errorAtCurrent("cannot have more than 255 parameters")
			}
			p.compiler.function.Arity++
			constant := p.parseVariable("expected parameter name")
			p.defineVariable(constant)
			if !p.match(scanner.TokenComma) {
				break
			}
		}
	}
	p.consume(scanner.TokenRParen, "expected ')' after parameters")
	p.consume(scanner.TokenLBrace, "expected '{' before function body")
	p.block()

	fn := p.endCompiler()
	p.emitConstant(Obj(fn))
}

// --- statements ---

func (p *parser) statement() {
	switch {
	case p.match(scanner.TokenPrint):
		p.printStatement()
	case p.match(scanner.TokenIf):
		p.ifStatement()
	case p.match(scanner.TokenWhile):
		p.whileStatement()
	case p.match(scanner.TokenFor):
		p.forStatement()
	case p.match(scanner.TokenReturn):
		p.returnStatement()
	case p.match(scanner.TokenLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(scanner.TokenRBrace) && !p.check(scanner.TokenEOF) {
		p.declaration()
	}
	p.consume(scanner.TokenRBrace, "expected '}' after block")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(scanner.TokenSemicolon, "expected ';' after value")
	p.emit(OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(scanner.TokenSemicolon, "expected ';' after expression")
	p.emit(OpPop)
}

func (p *parser) ifStatement() {
	p.consume(scanner.TokenLParen, "expected '(' after 'if'")
	p.expression()
	p.consume(scanner.TokenRParen, "expected ')' after condition")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emit(OpPop)

	if p.match(scanner.TokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := p.chunk().CodeLen()

	p.consume(scanner.TokenLParen, "expected '(' after 'while'")
	p.expression()
	p.consume(scanner.TokenRParen, "expected ')' after condition")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emit(OpPop)
}

// forStatement desugars to an initializer plus a while-style loop; the
// increment clause needs a jump dance because it executes after the body
// but sits before it in the bytecode.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(scanner.TokenLParen, "expected '(' after 'for'")

	switch {
	case p.match(scanner.TokenSemicolon):
		// no initializer
	case p.match(scanner.TokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.chunk().CodeLen()
	exitJump := -1
	if !p.match(scanner.TokenSemicolon) {
		p.expression()
		p.consume(scanner.TokenSemicolon, "expected ';' after loop condition")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emit(OpPop)
	}

	if !p.match(scanner.TokenRParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := p.chunk().CodeLen()
		p.expression()
		p.emit(OpPop)
		p.consume(scanner.TokenRParen, "expected ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emit(OpPop)
	}
	p.endScope()
}

func (p *parser) returnStatement() {
	if p.compiler.kind == kindScript {
		p.error("cannot return from top-level code")
	}

	if p.match(scanner.TokenSemicolon) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(scanner.TokenSemicolon, "expected ';' after return value")
	p.emit(OpReturn)
}

// --- expressions ---

func (p *parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses anything at the given precedence or tighter,
// dispatching through the rule table. canAssign threads through so that
// '=' only binds to valid assignment targets.
func (p *parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("expected expression")
		return
	}

	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Type).prec {
		p.advance()
		getRule(p.previous.Type).infix(p, canAssign)
	}

	if canAssign && p.match(scanner.TokenEqual) {
		p.error("invalid assignment target")
	}
}

func number(p *parser, _ bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(Number(v))
}

func stringLiteral(p *parser, _ bool) {
	p.emitConstant(Obj(p.interner.Intern(p.previous.Lexeme)))
}

func literal(p *parser, _ bool) {
	switch p.previous.Type {
	case scanner.TokenNil:
		p.emit(OpNil)
	case scanner.TokenTrue:
		p.emit(OpTrue)
	case scanner.TokenFalse:
		p.emit(OpFalse)
	}
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(scanner.TokenRParen, "expected ')' after expression")
}

func unary(p *parser, _ bool) {
	op := p.previous.Type
	p.parsePrecedence(PrecUnary)

	switch op {
	case scanner.TokenMinus:
		p.emit(OpNegate)
	case scanner.TokenBang:
		p.emit(OpNot)
	}
}

func binary(p *parser, _ bool) {
	op := p.previous.Type
	// One level tighter: binary operators are left-associative.
	p.parsePrecedence(getRule(op).prec + 1)

	switch op {
	case scanner.TokenPlus:
		p.emit(OpAdd)
	case scanner.TokenMinus:
		p.emit(OpSubtract)
	case scanner.TokenStar:
		p.emit(OpMultiply)
	case scanner.TokenSlash:
		p.emit(OpDivide)
	case scanner.TokenPercent:
		p.emit(OpModulo)
	case scanner.TokenEqualEqual:
		p.emit(OpEqual)
	case scanner.TokenBangEqual:
		p.emit(OpEqual)
		p.emit(OpNot)
	case scanner.TokenGreater:
		p.emit(OpGreater)
	case scanner.TokenGreaterEqual:
		p.emit(OpLess)
		p.emit(OpNot)
	case scanner.TokenLess:
		p.emit(OpLess)
	case scanner.TokenLessEqual:
		p.emit(OpGreater)
		p.emit(OpNot)
	}
}

// andExpr short-circuits: when the left operand is falsy the right
// operand's bytecode is skipped entirely.
func andExpr(p *parser, _ bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

// orExpr short-circuits: when the left operand is truthy the right
// operand's bytecode is skipped entirely.
func orExpr(p *parser, _ bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)

	p.patchJump(elseJump)
	p.emit(OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func variable(p *parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

// namedVariable resolves a name to a local slot or a global-name constant
// and emits the matching load or store.
func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var operands []byte

	if slot, ok := p.resolveLocal(p.compiler, name); ok {
		getOp, setOp = OpGetLocal, OpSetLocal
		operands = []byte{byte(slot)}
	} else {
		idx := p.identifierConstant(name)
		getOp, setOp = OpGetGlobal, OpSetGlobal
		operands = []byte{byte(idx >> 8), byte(idx)}
	}

	if canAssign && p.match(scanner.TokenEqual) {
		p.expression()
		p.emitWithOperands(setOp, operands...)
	} else {
		p.emitWithOperands(getOp, operands...)
	}
}

func call(p *parser, _ bool) {
	argc := p.argumentList()
	p.emitWithOperands(OpCall, argc)
}

func (p *parser) argumentList() byte {
	var count int
	if !p.check(scanner.TokenRParen) {
		for {
			p.expression()
			if count == maxArgs {
				p.error("cannot have more than 255 arguments")
			}
			count++
			if !p.match(scanner.TokenComma) {
				break
			}
		}
	}
	p.consume(scanner.TokenRParen, "expected ')' after arguments")
	return byte(count)
}
