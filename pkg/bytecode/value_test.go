package bytecode

import "testing"

func TestValueTruthiness(t *testing.T) {
	in := NewInterner()

	tests := []struct {
		name   string
		value  Value
		falsey bool
	}{
		{"nil", Nil(), true},
		{"false", Bool(false), true},
		{"true", Bool(true), false},
		{"zero", Number(0), false},
		{"negative", Number(-1), false},
		{"empty string", Obj(in.Intern("")), false},
		{"string", Obj(in.Intern("x")), false},
	}

	for _, tt := range tests {
		if got := tt.value.IsFalsey(); got != tt.falsey {
			t.Errorf("%s: IsFalsey() = %v, want %v", tt.name, got, tt.falsey)
		}
	}
}

func TestValueEquality(t *testing.T) {
	in := NewInterner()
	fn := NewFunction(in.Intern("f"))

	tests := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"nil == nil", Nil(), Nil(), true},
		{"true == true", Bool(true), Bool(true), true},
		{"true != false", Bool(true), Bool(false), false},
		{"1 == 1", Number(1), Number(1), true},
		{"1 != 2", Number(1), Number(2), false},
		{"no bool/number coercion", Number(0), Bool(false), false},
		{"no nil/number coercion", Number(0), Nil(), false},
		{"interned strings", Obj(in.Intern("abc")), Obj(in.Intern("abc")), true},
		{"different strings", Obj(in.Intern("abc")), Obj(in.Intern("abd")), false},
		{"string vs number", Obj(in.Intern("1")), Number(1), false},
		{"same function", Obj(fn), Obj(fn), true},
		{"different functions", Obj(fn), Obj(NewFunction(nil)), false},
	}

	for _, tt := range tests {
		if got := tt.a.Equals(tt.b); got != tt.equal {
			t.Errorf("%s: Equals() = %v, want %v", tt.name, got, tt.equal)
		}
		if got := tt.b.Equals(tt.a); got != tt.equal {
			t.Errorf("%s (flipped): Equals() = %v, want %v", tt.name, got, tt.equal)
		}
	}
}

func TestValueString(t *testing.T) {
	in := NewInterner()

	tests := []struct {
		value Value
		want  string
	}{
		{Nil(), "nil"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(1), "1"},
		{Number(3.5), "3.5"},
		{Number(-0.25), "-0.25"},
		{Number(1.0 / 3.0), "0.3333333333333333"},
		{Number(1e21), "1e+21"},
		{Obj(in.Intern("hello")), "hello"},
		{Obj(NewFunction(nil)), "<script>"},
		{Obj(NewFunction(in.Intern("fib"))), "<fn fib>"},
		{Obj(&NativeObject{Name: "clock"}), "<native clock>"},
	}

	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueTypeName(t *testing.T) {
	in := NewInterner()

	tests := []struct {
		value Value
		want  string
	}{
		{Nil(), "nil"},
		{Bool(true), "bool"},
		{Number(1), "number"},
		{Obj(in.Intern("s")), "string"},
		{Obj(NewFunction(nil)), "function"},
		{Obj(&NativeObject{Name: "clock"}), "native function"},
	}

	for _, tt := range tests {
		if got := tt.value.TypeName(); got != tt.want {
			t.Errorf("TypeName() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	in := NewInterner()

	if s, ok := Obj(in.Intern("x")).AsString(); !ok || s.Chars != "x" {
		t.Errorf("AsString() = %v, %v", s, ok)
	}
	if _, ok := Number(1).AsString(); ok {
		t.Error("AsString() on number should fail")
	}
	if _, ok := Obj(NewFunction(nil)).AsString(); ok {
		t.Error("AsString() on function should fail")
	}
	if f, ok := Obj(NewFunction(nil)).AsFunction(); !ok || f == nil {
		t.Error("AsFunction() on function should succeed")
	}
	if n, ok := Obj(&NativeObject{Name: "clock"}).AsNative(); !ok || n.Name != "clock" {
		t.Error("AsNative() on native should succeed")
	}
}
