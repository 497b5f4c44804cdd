package tmds

import "sync"

// parallelRowMin is the shortest row worth splitting across goroutines.
const parallelRowMin = 256

// Composer drives the three lanes of a link. Lane A carries blue and the
// sync bits, lane B green and lane C red.
type Composer struct {
	// Parallel lets EncodeRow run the three lanes concurrently. The output
	// is identical either way.
	Parallel bool

	a, b, c *LaneEncoder

	// per-lane scratch for EncodeRow
	sa, sb, sc []Symbol
}

// NewComposer returns a composer with all lanes reset.
func NewComposer() *Composer {
	return &Composer{
		Parallel: true,
		a:        NewLaneEncoder("A"),
		b:        NewLaneEncoder("B"),
		c:        NewLaneEncoder("C"),
	}
}

// EncodeActive encodes one visible pixel.
func (cp *Composer) EncodeActive(col Color) Word {
	a := cp.a.EncodeActive(col.B)
	b := cp.b.EncodeActive(col.G)
	c := cp.c.EncodeActive(col.R)
	return Pack(a, b, c)
}

// EncodeControl encodes one blanking tick. Only lane A carries sync; the
// other lanes send the zero control code. All counters are reset.
func (cp *Composer) EncodeControl(hsync, vsync bool) Word {
	b := cp.b.EncodeControl(false, false)
	c := cp.c.EncodeControl(false, false)
	a := cp.a.EncodeControl(hsync, vsync)
	return Pack(a, b, c)
}

// EncodeTick encodes whichever kind of tick t is.
func (cp *Composer) EncodeTick(t Tick) Word {
	if t.Active {
		return cp.EncodeActive(t.Color)
	}
	return cp.EncodeControl(t.Sync.HSync, t.Sync.VSync)
}

// EncodeRow encodes a run of consecutive active pixels, appending the words
// to dst.
func (cp *Composer) EncodeRow(row []Color, dst []Word) []Word {
	if !cp.Parallel || len(row) < parallelRowMin {
		for _, col := range row {
			dst = append(dst, cp.EncodeActive(col))
		}
		return dst
	}

	n := len(row)
	cp.sa = grow(cp.sa, n)
	cp.sb = grow(cp.sb, n)
	cp.sc = grow(cp.sc, n)

	var wg sync.WaitGroup
	wg.Add(3)
	go encodeLaneWorker(cp.a, row, cp.sa, func(c Color) uint8 { return c.B }, &wg)
	go encodeLaneWorker(cp.b, row, cp.sb, func(c Color) uint8 { return c.G }, &wg)
	go encodeLaneWorker(cp.c, row, cp.sc, func(c Color) uint8 { return c.R }, &wg)
	wg.Wait()

	for i := 0; i < n; i++ {
		dst = append(dst, Pack(cp.sa[i], cp.sb[i], cp.sc[i]))
	}
	return dst
}

func encodeLaneWorker(l *LaneEncoder, row []Color, out []Symbol, pick func(Color) uint8, wg *sync.WaitGroup) {
	defer wg.Done()
	for i, col := range row {
		out[i] = l.EncodeActive(pick(col))
	}
}

func grow(s []Symbol, n int) []Symbol {
	if cap(s) < n {
		return make([]Symbol, n)
	}
	return s[:n]
}

// Reset returns every lane to its power-on state.
func (cp *Composer) Reset() {
	cp.a.Reset()
	cp.b.Reset()
	cp.c.Reset()
}

// Disparity reports the counters of lanes A, B and C.
func (cp *Composer) Disparity() [3]int {
	return [3]int{cp.a.Disparity(), cp.b.Disparity(), cp.c.Disparity()}
}
