package tmds

import (
	"errors"
	"fmt"
)

var (
	// ErrReservedBits is returned for a Word with bits [31:30] set.
	ErrReservedBits = errors.New("tmds: reserved word bits set")
	// ErrMixedLanes is returned when the lanes of a Word disagree: data and
	// control symbols together, or sync bits outside lane A.
	ErrMixedLanes = errors.New("tmds: inconsistent lane symbols")
)

// LaneError attaches the offending lane and symbol to a decode error.
type LaneError struct {
	Lane   string
	Symbol Symbol
	Err    error
}

func (e *LaneError) Error() string {
	return fmt.Sprintf("lane %s symbol %010b: %v", e.Lane, e.Symbol, e.Err)
}

func (e *LaneError) Unwrap() error { return e.Err }

// DecodeSymbol inverts the lane transform. Control characters are reported
// with isControl set; anything else decodes to a data byte. No state is
// needed: bit 9 says whether the low byte was inverted for DC balance.
func DecodeSymbol(s Symbol) (data uint8, ctrl ControlCode, isControl bool) {
	if cc, ok := lookupControl(s); ok {
		return 0, cc, true
	}

	q := uint8(s)
	if s&(1<<9) != 0 {
		q = ^q
	}
	// bit i of the intermediate is the running XOR up to i, so neighbouring
	// bits recover the input. XNOR mode additionally inverts bits 1..7.
	data = q ^ (q << 1)
	if s&flagBit == 0 {
		data ^= 0xFE
	}
	return data, ControlCode{}, false
}

// DecodeWord turns a Word back into the tick that produced it.
func DecodeWord(w Word) (Tick, error) {
	if !w.Valid() {
		return Tick{}, ErrReservedBits
	}
	a, b, c := w.Lanes()

	da, ca, ka := DecodeSymbol(a)
	db, cb, kb := DecodeSymbol(b)
	dc, cc, kc := DecodeSymbol(c)

	switch {
	case !ka && !kb && !kc:
		return ActiveTick(Color{R: dc, G: db, B: da}), nil
	case ka && kb && kc:
		if cb != (ControlCode{}) {
			return Tick{}, &LaneError{Lane: "B", Symbol: b, Err: ErrMixedLanes}
		}
		if cc != (ControlCode{}) {
			return Tick{}, &LaneError{Lane: "C", Symbol: c, Err: ErrMixedLanes}
		}
		return BlankTick(ca.C0, ca.C1), nil
	}

	// report the first lane that disagrees with lane A
	switch {
	case kb != ka:
		return Tick{}, &LaneError{Lane: "B", Symbol: b, Err: ErrMixedLanes}
	default:
		return Tick{}, &LaneError{Lane: "C", Symbol: c, Err: ErrMixedLanes}
	}
}
