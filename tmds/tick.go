package tmds

import "strings"

// SyncFlags are the sync signals sent during blanking.
type SyncFlags struct {
	HSync bool
	VSync bool
}

func (s SyncFlags) String() string {
	var parts []string
	if s.HSync {
		parts = append(parts, "HSYNC")
	}
	if s.VSync {
		parts = append(parts, "VSYNC")
	}
	return strings.Join(parts, " ")
}

// Tick is what the timing layer hands over for one pixel clock: either an
// active pixel or a blanking interval with its sync flags.
type Tick struct {
	Active bool
	Color  Color
	Sync   SyncFlags
}

// ActiveTick returns a tick for a visible pixel.
func ActiveTick(c Color) Tick {
	return Tick{Active: true, Color: c}
}

// BlankTick returns a blanking tick.
func BlankTick(hsync, vsync bool) Tick {
	return Tick{Sync: SyncFlags{HSync: hsync, VSync: vsync}}
}
