package bytecode

import "testing"

func TestLinesRunLength(t *testing.T) {
	var l Lines
	for i := 0; i < 5; i++ {
		l.Push(1)
	}
	for i := 0; i < 3; i++ {
		l.Push(2)
	}
	l.Push(5)

	if l.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", l.Len())
	}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 1}, {4, 1}, {5, 2}, {7, 2}, {8, 5},
	}
	for _, tt := range tests {
		if got := l.Get(tt.offset); got != tt.want {
			t.Errorf("Get(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}

	if got := l.Get(9); got != 0 {
		t.Errorf("Get past end = %d, want 0", got)
	}
}

func TestLinesEncodeDecode(t *testing.T) {
	var l Lines
	for _, line := range []int{1, 1, 2, 2, 2, 7} {
		l.Push(line)
	}

	pairs := l.Encode()
	if len(pairs) != 6 { // three runs
		t.Fatalf("Encode() produced %d entries, want 6", len(pairs))
	}

	decoded, err := DecodeLines(pairs)
	if err != nil {
		t.Fatalf("DecodeLines: %v", err)
	}
	for offset := 0; offset < l.Len(); offset++ {
		if decoded.Get(offset) != l.Get(offset) {
			t.Errorf("offset %d: decoded line %d, want %d", offset, decoded.Get(offset), l.Get(offset))
		}
	}
}

func TestLinesDecodeOddLength(t *testing.T) {
	if _, err := DecodeLines([]uint32{1, 2, 3}); err == nil {
		t.Error("DecodeLines accepted odd-length input")
	}
}

func TestLinesEmpty(t *testing.T) {
	var l Lines
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if l.Get(0) != 0 {
		t.Errorf("Get(0) = %d, want 0", l.Get(0))
	}
}
