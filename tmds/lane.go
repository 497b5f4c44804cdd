package tmds

import (
	"fmt"
	"math/bits"
)

// Bounds of the half-disparity counter. The full running disparity of a lane
// is always even and stays within [-8, 8], so half of it is kept.
const (
	MinDisparity = -4
	MaxDisparity = 4
)

// xnorMask turns a prefix-XOR intermediate into its prefix-XNOR equivalent
// and clears the "used XOR" flag in bit 8.
const xnorMask = 0b1_1010_1010

// flagBit is bit 8 of the Phase-1 intermediate: set when XOR was used.
const flagBit = 1 << 8

// InvariantError reports a disparity counter outside its bounds. It is only
// ever raised through panic: it means the balancing rule is broken, not that
// the input was bad.
type InvariantError struct {
	Lane  string
	Value int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("tmds: lane %s disparity %d outside [%d, %d]",
		e.Lane, e.Value, MinDisparity, MaxDisparity)
}

// LaneEncoder encodes one TMDS channel and owns its running disparity.
// It is not safe for concurrent use.
type LaneEncoder struct {
	name string
	cnt  int8
}

// NewLaneEncoder returns a lane in its reset state. The name is only used in
// invariant reports.
func NewLaneEncoder(name string) *LaneEncoder {
	return &LaneEncoder{name: name}
}

// Disparity returns half of the lane's current ones-minus-zeros balance.
func (l *LaneEncoder) Disparity() int {
	return int(l.cnt)
}

// Reset returns the lane to its power-on state.
func (l *LaneEncoder) Reset() {
	l.cnt = 0
}

// EncodeActive encodes one data byte and updates the running disparity.
func (l *LaneEncoder) EncodeActive(data uint8) Symbol {
	qm := TransitionMinimize(data)
	useXOR := qm&flagBit != 0
	low := uint8(qm)
	d := int8(halfBalance(low))

	var out Symbol
	switch {
	case l.cnt == 0 || d == 0:
		if useXOR {
			out = flagBit | Symbol(low)
			l.cnt += d
		} else {
			out = 1<<9 | Symbol(^low)
			l.cnt -= d
		}
	case (l.cnt > 0 && d > 0) || (l.cnt < 0 && d < 0):
		out = 1<<9 | Symbol(^low)
		if useXOR {
			out |= flagBit
			l.cnt++
		}
		l.cnt -= d
	default:
		out = Symbol(low)
		if useXOR {
			out |= flagBit
		} else {
			l.cnt--
		}
		l.cnt += d
	}

	if l.cnt < MinDisparity || l.cnt > MaxDisparity {
		panic(&InvariantError{Lane: l.name, Value: int(l.cnt)})
	}
	return out
}

// EncodeControl resets the running disparity and returns the control
// character for (c0, c1).
func (l *LaneEncoder) EncodeControl(c0, c1 bool) Symbol {
	l.cnt = 0
	return ControlCode{C0: c0, C1: c1}.Symbol()
}

// TransitionMinimize returns the 9-bit intermediate of the first encoding
// phase. Bits 0-7 hold the prefix XOR (or XNOR) of data; bit 8 is set when
// XOR was kept.
func TransitionMinimize(data uint8) uint16 {
	qm := uint16(flagBit) | uint16(prefixXOR(data))
	if b := halfBalance(data); b > 0 || (b == 0 && data&1 == 0) {
		qm ^= xnorMask
	}
	return qm
}

// prefixXOR sets bit i of the result to the XOR of bits 0..i of x.
func prefixXOR(x uint8) uint8 {
	var y, acc uint8
	for i := 0; i < 8; i++ {
		acc ^= (x >> i) & 1
		y |= acc << i
	}
	return y
}

// halfBalance is (ones - zeros) / 2 over the eight bits of x, in [-4, 4].
func halfBalance(x uint8) int {
	return bits.OnesCount8(x) - 4
}

// Transitions counts the bit changes between neighbouring positions of s.
func Transitions(s Symbol) int {
	s &= SymbolMask
	return bits.OnesCount16(uint16((s ^ s>>1) & 0x1FF))
}
