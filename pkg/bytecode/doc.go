// Package bytecode provides the Lox compiler and the stack-based virtual
// machine that executes its output.
//
// The bytecode format is designed for:
//   - Compact representation (typically 1-3 bytes per instruction)
//   - Fast decoding (fixed-width opcodes, big-endian operands)
//   - Easy serialization (compiled functions can be cached on disk)
//
// # Architecture Overview
//
// The package consists of several components:
//
//   - Opcodes: ~26 stack-based instructions covering constants, arithmetic,
//     comparison, variable access, control flow, and function calls
//
//   - Chunk: a compiled function's code, constant pool, and a run-length
//     encoded table mapping byte offsets to source lines
//
//   - Compiler: a single-pass compiler that pulls tokens from the scanner,
//     parses expressions by precedence climbing, and emits instructions
//     directly into the current function's chunk without building an AST
//
//   - VM: a stack interpreter with one contiguous value stack shared by
//     all call frames; each frame indexes its locals relative to a fixed
//     base offset resolved at compile time
//
//   - Interner: the process-wide string table; equal string contents map
//     to one canonical object, so string equality is pointer equality and
//     global lookup hashes a pointer
//
// # Memory Model
//
// There is no garbage collector. Strings and functions are allocated once
// (at intern or compile time) and retained for the process lifetime. The
// language has no closures, so no reference cycles can form.
package bytecode
