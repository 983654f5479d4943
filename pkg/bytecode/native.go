package bytecode

import "time"

// NativeDef describes a host function to register as a global before any
// user code executes.
type NativeDef struct {
	Name  string
	Arity int
	Fn    NativeFn
}

// StdNatives returns the standard native registry. Currently this is just
// clock(), which returns seconds elapsed on the wall clock as a number.
func StdNatives() []NativeDef {
	return []NativeDef{
		{
			Name:  "clock",
			Arity: 0,
			Fn: func(args []Value) (Value, error) {
				return Number(float64(time.Now().UnixNano()) / 1e9), nil
			},
		},
	}
}
