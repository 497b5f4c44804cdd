package tmds

// Symbol is one 10-bit TMDS character. Only the low 10 bits are significant.
type Symbol uint16

// SymbolMask selects the significant bits of a Symbol.
const SymbolMask = 0x3FF

// Bit offsets of the three lanes inside a Word.
const (
	LaneAShift = 0
	LaneBShift = 10
	LaneCShift = 20
)

// reservedMask covers bits [31:30], which are always zero in a valid Word.
const reservedMask = 0xC0000000

// Word is the composite output of one tick: lane C (red) in [29:20],
// lane B (green) in [19:10] and lane A (blue, sync) in [9:0].
type Word uint32

// Pack assembles a Word from the three lane symbols.
func Pack(a, b, c Symbol) Word {
	return Word(uint32(c&SymbolMask)<<LaneCShift |
		uint32(b&SymbolMask)<<LaneBShift |
		uint32(a&SymbolMask)<<LaneAShift)
}

// Lanes splits w back into its lane symbols.
func (w Word) Lanes() (a, b, c Symbol) {
	a = Symbol(w>>LaneAShift) & SymbolMask
	b = Symbol(w>>LaneBShift) & SymbolMask
	c = Symbol(w>>LaneCShift) & SymbolMask
	return
}

// Valid reports whether the reserved top bits are clear.
func (w Word) Valid() bool {
	return uint32(w)&reservedMask == 0
}

// RawColor is a pixel as stored in memory: 0x??RRGGBB.
type RawColor uint32

// Color is a pixel split into its 8-bit components.
type Color struct {
	R, G, B uint8
}

// Color parses the components; the top byte is ignored.
func (rc RawColor) Color() Color {
	return Color{
		R: uint8(rc >> 16),
		G: uint8(rc >> 8),
		B: uint8(rc),
	}
}

// Raw packs c into its stored form with a zero top byte.
func (c Color) Raw() RawColor {
	return RawColor(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
}
