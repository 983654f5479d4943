package bytecode

import (
	"fmt"
	"strconv"
)

// ValueType tags the variant held by a Value.
type ValueType uint8

const (
	// ValNil is the nil value.
	ValNil ValueType = iota

	// ValBool is a boolean.
	ValBool

	// ValNumber is a double-precision float.
	ValNumber

	// ValObject is a reference to heap data (string, function, native).
	ValObject
)

// String returns a human-readable name for ValueType.
func (t ValueType) String() string {
	switch t {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObject:
		return "object"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value is the tagged runtime value shared by compiler constants and the
// VM stack. Values are small and copied freely; object variants carry a
// reference to heap data that lives for the process lifetime.
type Value struct {
	Type    ValueType
	boolean bool
	number  float64
	obj     Object
}

// Nil returns the nil value.
func Nil() Value {
	return Value{Type: ValNil}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{Type: ValBool, boolean: b}
}

// Number returns a number value.
func Number(n float64) Value {
	return Value{Type: ValNumber, number: n}
}

// Obj returns an object value.
func Obj(o Object) Value {
	return Value{Type: ValObject, obj: o}
}

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.Type == ValNil }

// IsBool reports whether the value is a boolean.
func (v Value) IsBool() bool { return v.Type == ValBool }

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool { return v.Type == ValNumber }

// IsObject reports whether the value is an object reference.
func (v Value) IsObject() bool { return v.Type == ValObject }

// AsBool returns the boolean payload. Only meaningful when IsBool.
func (v Value) AsBool() bool { return v.boolean }

// AsNumber returns the number payload. Only meaningful when IsNumber.
func (v Value) AsNumber() float64 { return v.number }

// AsObject returns the object payload. Only meaningful when IsObject.
func (v Value) AsObject() Object { return v.obj }

// AsString returns the string object payload, if the value holds one.
func (v Value) AsString() (*StringObject, bool) {
	if v.Type != ValObject {
		return nil, false
	}
	s, ok := v.obj.(*StringObject)
	return s, ok
}

// AsFunction returns the function object payload, if the value holds one.
func (v Value) AsFunction() (*FunctionObject, bool) {
	if v.Type != ValObject {
		return nil, false
	}
	f, ok := v.obj.(*FunctionObject)
	return f, ok
}

// AsNative returns the native object payload, if the value holds one.
func (v Value) AsNative() (*NativeObject, bool) {
	if v.Type != ValObject {
		return nil, false
	}
	n, ok := v.obj.(*NativeObject)
	return n, ok
}

// IsFalsey reports whether the value is false in a conditional context.
// Only nil and boolean false are falsy; every other value, including the
// number zero and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return !v.boolean
	default:
		return false
	}
}

// Equals reports whether two values are equal. Values of different
// variants are never equal (no coercion). Strings are interned, so all
// object comparisons reduce to pointer identity.
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.boolean == other.boolean
	case ValNumber:
		return v.number == other.number
	case ValObject:
		return v.obj == other.obj
	default:
		return false
	}
}

// String returns the canonical textual form used by the print statement:
// numbers in shortest round-trippable decimal form, true/false/nil as
// those literals, strings as their raw contents.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case ValObject:
		return v.obj.String()
	default:
		return fmt.Sprintf("<invalid value type %d>", v.Type)
	}
}

// TypeName returns the user-facing name of the value's type, used in
// runtime error messages.
func (v Value) TypeName() string {
	if v.Type == ValObject {
		return v.obj.ObjectType().String()
	}
	return v.Type.String()
}

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// ObjectType tags the variant of a heap object.
type ObjectType uint8

const (
	// ObjString is an immutable interned string.
	ObjString ObjectType = iota

	// ObjFunction is a compiled user function.
	ObjFunction

	// ObjNative is a host-provided function.
	ObjNative
)

// String returns a human-readable name for ObjectType.
func (t ObjectType) String() string {
	switch t {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNative:
		return "native function"
	default:
		return fmt.Sprintf("ObjectType(%d)", uint8(t))
	}
}

// Object is the interface implemented by all heap-allocated values.
type Object interface {
	ObjectType() ObjectType
	String() string
}

// StringObject is an immutable character sequence. All StringObjects are
// created through an Interner, so equal contents imply the same pointer.
type StringObject struct {
	Chars string
}

// ObjectType implements Object.
func (s *StringObject) ObjectType() ObjectType { return ObjString }

// String returns the raw string contents.
func (s *StringObject) String() string { return s.Chars }

// FunctionObject is a compiled user function wrapping its bytecode chunk.
// The top-level script is represented as a function with a nil name.
type FunctionObject struct {
	Arity int
	Chunk *Chunk
	Name  *StringObject // nil for the top-level script
}

// NewFunction creates an empty function with a fresh chunk.
func NewFunction(name *StringObject) *FunctionObject {
	return &FunctionObject{Chunk: NewChunk(), Name: name}
}

// ObjectType implements Object.
func (f *FunctionObject) ObjectType() ObjectType { return ObjFunction }

// String returns "<script>" for the top level and "<fn name>" otherwise.
func (f *FunctionObject) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// NativeFn is the signature of a host-implemented function. It receives
// the argument values (already arity-checked by the VM) and must not
// re-enter the VM or block indefinitely.
type NativeFn func(args []Value) (Value, error)

// NativeObject is a host-provided function exposed to scripts as a
// callable value.
type NativeObject struct {
	Name  string
	Arity int
	Fn    NativeFn
}

// ObjectType implements Object.
func (n *NativeObject) ObjectType() ObjectType { return ObjNative }

// String returns "<native name>".
func (n *NativeObject) String() string { return "<native " + n.Name + ">" }
