package bytecode

import (
	encbinary "encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Wire format for compiled programs: a fixed header (magic plus version)
// followed by a canonical CBOR encoding of the function tree. Canonical
// mode keeps the bytes deterministic, so equal programs cache to equal
// blobs.

const (
	// WireMagic identifies a serialized program.
	WireMagic = "GLBC"

	// WireVersion is bumped whenever the opcode set or the wire structs
	// change incompatibly.
	WireVersion uint16 = 1
)

// ErrBadMagic is returned when the input does not start with WireMagic.
var ErrBadMagic = errors.New("not a compiled program (bad magic)")

// ErrWireVersion is returned when the input was written by an
// incompatible version.
var ErrWireVersion = errors.New("unsupported program version")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// wireValue is the serialized form of one constant. Exactly one payload
// field is meaningful per kind.
type wireValue struct {
	Kind   uint8         `cbor:"k"`
	Bool   bool          `cbor:"b,omitempty"`
	Number float64       `cbor:"n,omitempty"`
	Str    string        `cbor:"s,omitempty"`
	Fn     *wireFunction `cbor:"f,omitempty"`
}

const (
	wireNil uint8 = iota
	wireBool
	wireNumber
	wireString
	wireFunction_
)

// wireFunction is the serialized form of one function and, through its
// constant pool, every function nested in it.
type wireFunction struct {
	Name      string      `cbor:"name,omitempty"`
	HasName   bool        `cbor:"named"`
	Arity     int         `cbor:"arity"`
	Code      []byte      `cbor:"code"`
	Lines     []uint32    `cbor:"lines"`
	Constants []wireValue `cbor:"consts"`
}

// MarshalProgram serializes a compiled top-level function.
func MarshalProgram(fn *FunctionObject) ([]byte, error) {
	wf, err := toWireFunction(fn)
	if err != nil {
		return nil, err
	}
	body, err := cborEncMode.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}

	out := make([]byte, 0, len(WireMagic)+2+len(body))
	out = append(out, WireMagic...)
	out = encbinary.BigEndian.AppendUint16(out, WireVersion)
	out = append(out, body...)
	return out, nil
}

// UnmarshalProgram deserializes a compiled program. Strings are re-interned
// through the given interner so pointer-identity semantics hold against
// strings created at runtime.
func UnmarshalProgram(data []byte, interner *Interner) (*FunctionObject, error) {
	if len(data) < len(WireMagic)+2 || string(data[:len(WireMagic)]) != WireMagic {
		return nil, ErrBadMagic
	}
	version := encbinary.BigEndian.Uint16(data[len(WireMagic):])
	if version != WireVersion {
		return nil, fmt.Errorf("%w: %d", ErrWireVersion, version)
	}

	var wf wireFunction
	if err := cbor.Unmarshal(data[len(WireMagic)+2:], &wf); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	return fromWireFunction(&wf, interner)
}

func toWireFunction(fn *FunctionObject) (*wireFunction, error) {
	wf := &wireFunction{
		Arity: fn.Arity,
		Code:  fn.Chunk.Code,
		Lines: fn.Chunk.lines.Encode(),
	}
	if fn.Name != nil {
		wf.Name = fn.Name.Chars
		wf.HasName = true
	}

	wf.Constants = make([]wireValue, 0, len(fn.Chunk.Constants))
	for _, v := range fn.Chunk.Constants {
		wv, err := toWireValue(v)
		if err != nil {
			return nil, err
		}
		wf.Constants = append(wf.Constants, wv)
	}
	return wf, nil
}

func toWireValue(v Value) (wireValue, error) {
	switch v.Type {
	case ValNil:
		return wireValue{Kind: wireNil}, nil
	case ValBool:
		return wireValue{Kind: wireBool, Bool: v.AsBool()}, nil
	case ValNumber:
		return wireValue{Kind: wireNumber, Number: v.AsNumber()}, nil
	case ValObject:
		if s, ok := v.AsString(); ok {
			return wireValue{Kind: wireString, Str: s.Chars}, nil
		}
		if fn, ok := v.AsFunction(); ok {
			wf, err := toWireFunction(fn)
			if err != nil {
				return wireValue{}, err
			}
			return wireValue{Kind: wireFunction_, Fn: wf}, nil
		}
		return wireValue{}, fmt.Errorf("bytecode: cannot serialize %s constant", v.TypeName())
	default:
		return wireValue{}, fmt.Errorf("bytecode: cannot serialize value type %d", v.Type)
	}
}

func fromWireFunction(wf *wireFunction, interner *Interner) (*FunctionObject, error) {
	lines, err := DecodeLines(wf.Lines)
	if err != nil {
		return nil, err
	}

	fn := &FunctionObject{Arity: wf.Arity, Chunk: NewChunk()}
	if wf.HasName {
		fn.Name = interner.Intern(wf.Name)
	}
	fn.Chunk.Code = wf.Code
	fn.Chunk.lines = *lines

	fn.Chunk.Constants = make([]Value, 0, len(wf.Constants))
	for _, wv := range wf.Constants {
		v, err := fromWireValue(wv, interner)
		if err != nil {
			return nil, err
		}
		fn.Chunk.Constants = append(fn.Chunk.Constants, v)
	}
	return fn, nil
}

func fromWireValue(wv wireValue, interner *Interner) (Value, error) {
	switch wv.Kind {
	case wireNil:
		return Nil(), nil
	case wireBool:
		return Bool(wv.Bool), nil
	case wireNumber:
		return Number(wv.Number), nil
	case wireString:
		return Obj(interner.Intern(wv.Str)), nil
	case wireFunction_:
		if wv.Fn == nil {
			return Nil(), errors.New("bytecode: function constant with no body")
		}
		fn, err := fromWireFunction(wv.Fn, interner)
		if err != nil {
			return Nil(), err
		}
		return Obj(fn), nil
	default:
		return Nil(), fmt.Errorf("bytecode: unknown constant kind %d", wv.Kind)
	}
}
