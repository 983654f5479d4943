package bytecode

// Interner is the process-scope string table. Every StringObject in the
// system is created here, so equal contents always yield the same pointer:
// string equality in the VM is pointer equality, and the globals table
// hashes pointers instead of contents.
//
// The interner is deliberately thread-unaware; compilation and execution
// are strictly single-threaded.
type Interner struct {
	strings map[string]*StringObject
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{strings: make(map[string]*StringObject)}
}

// Intern returns the canonical StringObject for the given contents,
// creating it on first use.
func (in *Interner) Intern(chars string) *StringObject {
	if s, ok := in.strings[chars]; ok {
		return s
	}
	s := &StringObject{Chars: chars}
	in.strings[chars] = s
	return s
}

// Count returns the number of distinct strings interned.
func (in *Interner) Count() int {
	return len(in.strings)
}
