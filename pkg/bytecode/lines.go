package bytecode

import "errors"

var errOddLinePairs = errors.New("line table must be (line, count) pairs")

// Lines maps code byte offsets to source lines using run-length encoding:
// consecutive bytes from the same line share one (line, count) run. Scripts
// emit long runs per statement, so this is far smaller than one entry per
// byte while keeping lookups simple.
type Lines struct {
	runs []lineRun
}

type lineRun struct {
	line  int
	count int
}

// Push records the source line for the next code byte.
func (l *Lines) Push(line int) {
	if n := len(l.runs); n > 0 && l.runs[n-1].line == line {
		l.runs[n-1].count++
		return
	}
	l.runs = append(l.runs, lineRun{line: line, count: 1})
}

// Get returns the source line for the byte at the given offset, or 0 if
// the offset is past the recorded code.
func (l *Lines) Get(offset int) int {
	covered := 0
	for _, run := range l.runs {
		covered += run.count
		if offset < covered {
			return run.line
		}
	}
	return 0
}

// Len returns the number of code bytes covered by the table.
func (l *Lines) Len() int {
	n := 0
	for _, run := range l.runs {
		n += run.count
	}
	return n
}

// Encode flattens the table to (line, count) pairs for serialization.
func (l *Lines) Encode() []uint32 {
	out := make([]uint32, 0, len(l.runs)*2)
	for _, run := range l.runs {
		out = append(out, uint32(run.line), uint32(run.count))
	}
	return out
}

// DecodeLines rebuilds a table from Encode output. The input length must
// be even.
func DecodeLines(pairs []uint32) (*Lines, error) {
	if len(pairs)%2 != 0 {
		return nil, errOddLinePairs
	}
	l := &Lines{runs: make([]lineRun, 0, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		l.runs = append(l.runs, lineRun{line: int(pairs[i]), count: int(pairs[i+1])})
	}
	return l, nil
}
