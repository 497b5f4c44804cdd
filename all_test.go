package main

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/svanichkin/hdmi/tmds"
)

// -----------------------------
// Unit tests
// -----------------------------

func makeTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x * 17) ^ (y * 31)),
				G: uint8((x * 43) + (y * 13)),
				B: uint8((x * 7) ^ (y * 11)),
				A: 255,
			})
		}
	}
	return img
}

// toRGBA copies an opaque image into an *image.RGBA at the origin.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name     string
		w, h     int
		parallel bool
	}{
		{name: "tiny", w: 1, h: 1, parallel: true},
		{name: "small_serial", w: 64, h: 48, parallel: false},
		{name: "small_parallel", w: 64, h: 48, parallel: true},
		{name: "wide_parallel", w: 640, h: 4, parallel: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src := makeTestImage(tc.w, tc.h)

			enc := NewEncoder()
			enc.Parallel = tc.parallel
			comp, err := enc.Encode(src)
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(comp, []byte("TMDS")))

			dec, err := NewDecoder().Decode(comp)
			require.NoError(t, err)
			require.Equal(t, src.Bounds(), dec.Bounds())
			require.Equal(t, src.Pix, dec.Pix, "TMDS is lossless for opaque pixels")
		})
	}
}

func TestEncode_SerialParallelIdentical(t *testing.T) {
	src := makeTestImage(700, 3)

	ser := NewEncoder()
	ser.Parallel = false
	a, err := ser.Encode(src)
	require.NoError(t, err)
	a = bytes.Clone(a)

	b, err := NewEncoder().Encode(src)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEncode_PooledHelpers(t *testing.T) {
	src := makeTestImage(16, 9)
	comp, err := Encode(src)
	require.NoError(t, err)

	img, err := Decode(comp)
	require.NoError(t, err)
	require.Equal(t, src.Pix, img.(*image.RGBA).Pix)

	// a second frame through the same pooled encoder starts from a reset link
	again, err := Encode(src)
	require.NoError(t, err)
	require.Equal(t, comp, again)
}

func TestEncode_OffsetBounds(t *testing.T) {
	src := makeTestImage(20, 20).SubImage(image.Rect(5, 5, 15, 12))
	comp, err := Encode(src)
	require.NoError(t, err)

	dec, err := NewDecoder().Decode(comp)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 7), dec.Bounds())
	require.Equal(t, toRGBA(src).Pix, dec.Pix)
}

func TestEncode_EmptyImage(t *testing.T) {
	_, err := Encode(image.NewRGBA(image.Rect(0, 0, 0, 4)))
	require.Error(t, err)
}

func TestDecodeWords_FrameLayout(t *testing.T) {
	src := makeTestImage(3, 2)
	comp, err := Encode(src)
	require.NoError(t, err)

	hdr, words, err := NewDecoder().DecodeWords(comp)
	require.NoError(t, err)
	require.Equal(t, Header{Width: 3, Height: 2, Words: 7}, hdr)
	require.Len(t, words, 7)

	first, err := tmds.DecodeWord(words[0])
	require.NoError(t, err)
	require.Equal(t, tmds.BlankTick(false, true), first)

	// every pixel word matches an independent composer fed in raster order
	cp := tmds.NewComposer()
	cp.EncodeControl(false, true)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			p := src.RGBAAt(x, y)
			want := cp.EncodeActive(tmds.Color{R: p.R, G: p.G, B: p.B})
			require.Equal(t, want, words[1+y*3+x], "pixel %d,%d", x, y)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	good, err := Encode(makeTestImage(4, 4))
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(good)
		copy(bad, "BABE")
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrInvalidMagic)
	})
	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[4] = 9
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})
	t.Run("short header", func(t *testing.T) {
		_, err := Decode(good[:6])
		require.Error(t, err)
	})
	t.Run("corrupt payload", func(t *testing.T) {
		bad := bytes.Clone(good[:headerSize])
		bad = append(bad, 1, 2, 3, 4, 5, 6, 7, 8)
		_, err := Decode(bad)
		require.ErrorContains(t, err, "zstd decode")
	})
	t.Run("word count", func(t *testing.T) {
		bad := bytes.Clone(good)
		bad[headerSize-1]++
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrWordCount)
	})
}

// containerFor builds a container around an arbitrary word stream.
func containerFor(t *testing.T, w, h int, words []tmds.Word) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, WriteHeader(&b, Header{Width: w, Height: h, Words: uint32(len(words))}))
	enc := mustNewZstdEncoder()
	return enc.EncodeAll(tmds.AppendWords(nil, words), b.Bytes())
}

func TestDecode_StreamErrors(t *testing.T) {
	cp := tmds.NewComposer()
	px := cp.EncodeActive(tmds.Color{R: 1})
	vsync := cp.EncodeControl(false, true)
	hsync := cp.EncodeControl(true, false)

	_, err := Decode(containerFor(t, 1, 1, []tmds.Word{px, px}))
	require.ErrorIs(t, err, ErrFrameStart)

	_, err = Decode(containerFor(t, 1, 1, []tmds.Word{hsync, px}))
	require.ErrorIs(t, err, ErrFrameStart)

	_, err = Decode(containerFor(t, 2, 1, []tmds.Word{vsync, px, hsync}))
	require.ErrorIs(t, err, ErrUnexpectedBlanking)

	_, err = Decode(containerFor(t, 1, 1, []tmds.Word{vsync, tmds.Word(0xC0000000)}))
	require.ErrorIs(t, err, tmds.ErrReservedBits)
}

func TestHeader_RoundTrip(t *testing.T) {
	var b bytes.Buffer
	want := Header{Width: 640, Height: 480, Words: frameWords(640, 480)}
	require.NoError(t, WriteHeader(&b, want))
	require.Equal(t, headerSize, b.Len())

	got, err := ReadHeader(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.ErrorIs(t, WriteHeader(&b, Header{Width: 1 << 16, Height: 1}), ErrFrameSize)
}

func TestReadHeader_ZeroDimensions(t *testing.T) {
	for _, dims := range [][2]uint16{{0, 1}, {1, 0}, {0, 0}} {
		raw := []byte(magic)
		raw = append(raw, containerVersion)
		raw = binary.BigEndian.AppendUint16(raw, dims[0])
		raw = binary.BigEndian.AppendUint16(raw, dims[1])
		raw = binary.BigEndian.AppendUint32(raw, 1)

		_, err := ReadHeader(bytes.NewReader(raw))
		require.ErrorIs(t, err, ErrFrameSize, "%dx%d", dims[0], dims[1])

		// a lone vsync word must not turn into an empty image
		cp := tmds.NewComposer()
		data := mustNewZstdEncoder().EncodeAll(tmds.AppendWords(nil, []tmds.Word{cp.EncodeControl(false, true)}), raw)
		_, err = Decode(data)
		require.ErrorIs(t, err, ErrFrameSize)
	}
}

func TestDecode_OversizedPayload(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, WriteHeader(&b, Header{Width: 1, Height: 1, Words: 2}))
	data := mustNewZstdEncoder().EncodeAll(make([]byte, 64<<20), b.Bytes())
	require.Less(t, len(data), 64<<10)

	d := NewDecoder()
	_, _, err := d.DecodeWords(data)
	require.ErrorIs(t, err, ErrWordCount)
	// inflation stops right after the declared size
	require.LessOrEqual(t, len(d.raw), 2*tmds.WordSize+1)
	require.Less(t, cap(d.raw), 1<<20)
}

func TestEncode_TranslucentPixel(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	for name, img := range map[string]image.Image{
		"nrgba":   src,
		"generic": image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.NRGBA{R: 200, G: 100, B: 50, A: 128}}),
	} {
		t.Run(name, func(t *testing.T) {
			comp, err := Encode(img)
			require.NoError(t, err)
			dec, err := NewDecoder().Decode(comp)
			require.NoError(t, err)
			require.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, dec.RGBAAt(0, 0))
		})
	}
}

func TestCLI_EncodeDecodeFiles(t *testing.T) {
	dir := t.TempDir()
	src := makeTestImage(32, 8)

	imgPath := filepath.Join(dir, "frame.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	require.NoError(t, run(imgPath, "", false, true))
	tmdsPath := filepath.Join(dir, "frame.tmds")
	require.FileExists(t, tmdsPath)

	outPath := filepath.Join(dir, "decoded.png")
	require.NoError(t, run(tmdsPath, outPath, false, true))

	f, err = os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	dec, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, src.Pix, toRGBA(dec).Pix)
}

func TestCLI_DumpToFile(t *testing.T) {
	dir := t.TempDir()
	tmdsPath := filepath.Join(dir, "frame.tmds")
	comp, err := Encode(makeTestImage(2, 2))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(tmdsPath, comp, 0o644))

	dumpPath := filepath.Join(dir, "frame.txt")
	require.NoError(t, run(tmdsPath, dumpPath, true, true))

	out, err := os.ReadFile(dumpPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "frame 2x2, 5 words\n"))
	require.NoFileExists(t, filepath.Join(dir, "frame.png"))
}

func TestCLI_MissingInput(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "nope.png"), "", false, true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteDump(t *testing.T) {
	src := makeTestImage(2, 1)
	comp, err := Encode(src)
	require.NoError(t, err)
	hdr, words, err := NewDecoder().DecodeWords(comp)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeDump(&out, hdr, words))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1+len(words)+1)
	require.Equal(t, "frame 2x1, 3 words", lines[0])
	require.Contains(t, lines[1], "blank VSYNC")
	p := src.RGBAAt(1, 0)
	require.Contains(t, lines[3], "pixel #"+hex3(p.R, p.G, p.B))
	require.True(t, strings.HasPrefix(lines[4], "avg transitions/symbol"))
}

func hex3(r, g, b uint8) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, 6)
	for _, v := range []uint8{r, g, b} {
		out = append(out, digits[v>>4], digits[v&0xF])
	}
	return string(out)
}
