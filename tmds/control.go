package tmds

// ControlCode is the pair of control bits carried by a lane during blanking.
type ControlCode struct {
	C0, C1 bool
}

// Control symbols sent while data enable is low. Each has five ones and five
// zeros and more transitions than any data symbol, so a receiver can tell them
// apart from pixel data.
const (
	ControlSymbol00 Symbol = 0b1101010100 // c1=0 c0=0
	ControlSymbol01 Symbol = 0b0010101011 // c1=0 c0=1
	ControlSymbol10 Symbol = 0b0101010100 // c1=1 c0=0
	ControlSymbol11 Symbol = 0b1010101011 // c1=1 c0=1
)

// controlSymbols is indexed by c1<<1 | c0.
var controlSymbols = [4]Symbol{
	ControlSymbol00,
	ControlSymbol01,
	ControlSymbol10,
	ControlSymbol11,
}

func (cc ControlCode) index() int {
	i := 0
	if cc.C0 {
		i |= 1
	}
	if cc.C1 {
		i |= 2
	}
	return i
}

// Symbol returns the fixed control character for cc.
func (cc ControlCode) Symbol() Symbol {
	return controlSymbols[cc.index()]
}

// lookupControl maps a symbol back to its control bits.
func lookupControl(s Symbol) (ControlCode, bool) {
	for i, cs := range controlSymbols {
		if cs == s&SymbolMask {
			return ControlCode{C0: i&1 != 0, C1: i&2 != 0}, true
		}
	}
	return ControlCode{}, false
}

// IsControl reports whether s is one of the four control characters.
func IsControl(s Symbol) bool {
	_, ok := lookupControl(s)
	return ok
}
