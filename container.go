package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/svanichkin/hdmi/tmds"
)

// Container layout:
//
//	magic "TMDS" | version u8 | width u16 BE | height u16 BE | words u32 BE | zstd(words, LE u32)
//
// The word stream is one vsync blanking word that marks the frame start,
// followed by width*height active words in row-major order.
const (
	magic            = "TMDS"
	containerVersion = 1
	headerSize       = len(magic) + 1 + 2 + 2 + 4
	maxDimension     = 1<<16 - 1
)

var (
	ErrInvalidMagic       = errors.New("tmds: invalid magic")
	ErrUnsupportedVersion = errors.New("tmds: unsupported container version")
	ErrFrameSize          = errors.New("tmds: frame size out of range")
	ErrWordCount          = errors.New("tmds: word count does not match frame size")
	ErrFrameStart         = errors.New("tmds: stream does not start with a vsync word")
	ErrUnexpectedBlanking = errors.New("tmds: blanking word inside active frame")
)

// Header describes one encoded frame.
type Header struct {
	Width  int
	Height int
	Words  uint32
}

func validFrameSize(w, h int) bool {
	return w > 0 && h > 0 && w <= maxDimension && h <= maxDimension
}

func WriteHeader(b *bytes.Buffer, h Header) error {
	if !validFrameSize(h.Width, h.Height) {
		return fmt.Errorf("%w: %dx%d", ErrFrameSize, h.Width, h.Height)
	}
	if _, err := b.WriteString(magic); err != nil {
		return err
	}
	if err := b.WriteByte(containerVersion); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint16(h.Width)); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint16(h.Height)); err != nil {
		return err
	}
	return binary.Write(b, binary.BigEndian, h.Words)
}

func ReadHeader(r *bytes.Reader) (h Header, err error) {
	m := make([]byte, len(magic))
	if _, err = io.ReadFull(r, m); err != nil {
		return
	}
	if string(m) != magic {
		return Header{}, ErrInvalidMagic
	}

	ver, err := r.ReadByte()
	if err != nil {
		return
	}
	if ver != containerVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, ver)
	}

	var w16, h16 uint16
	if err = binary.Read(r, binary.BigEndian, &w16); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &h16); err != nil {
		return
	}
	if err = binary.Read(r, binary.BigEndian, &h.Words); err != nil {
		return
	}
	h.Width, h.Height = int(w16), int(h16)
	if !validFrameSize(h.Width, h.Height) {
		return Header{}, fmt.Errorf("%w: %dx%d", ErrFrameSize, h.Width, h.Height)
	}
	return
}

// frameWords is the number of words a frame of the given size occupies.
func frameWords(w, h int) uint32 {
	return uint32(1 + w*h)
}

// Encoder turns images into .tmds containers. It reuses its buffers and
// composer state between calls and is not safe for concurrent use.
type Encoder struct {
	// Parallel encodes the three lanes of each row concurrently.
	Parallel bool

	cp   *tmds.Composer
	raw  bytes.Buffer
	row  []tmds.Color
	out  bytes.Buffer
	zenc *zstd.Encoder
}

func NewEncoder() *Encoder {
	return &Encoder{
		Parallel: true,
		cp:       tmds.NewComposer(),
		zenc:     mustNewZstdEncoder(),
	}
}

// Encode returns the container for img. The returned slice is only valid
// until the next call.
func (e *Encoder) Encode(img image.Image) ([]byte, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	hdr := Header{Width: w, Height: h, Words: frameWords(w, h)}

	e.out.Reset()
	if err := WriteHeader(&e.out, hdr); err != nil {
		return nil, err
	}

	e.raw.Reset()
	e.raw.Grow(int(hdr.Words) * tmds.WordSize)
	e.cp.Parallel = e.Parallel
	s := tmds.NewStreamWith(&e.raw, e.cp)

	// vsync word: marks the frame and resets every lane
	if err := s.WriteTick(tmds.BlankTick(false, true)); err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		e.row = rowColors(img, y, e.row)
		if err := s.WriteRow(e.row); err != nil {
			return nil, err
		}
	}
	if err := s.Flush(); err != nil {
		return nil, err
	}

	comp := e.zenc.EncodeAll(e.raw.Bytes(), e.out.AvailableBuffer())
	e.out.Write(comp)

	disp := e.cp.Disparity()
	Logger().Debug("encoded frame",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("words", s.Words()),
		zap.Int("raw_bytes", e.raw.Len()),
		zap.Int("container_bytes", e.out.Len()),
		zap.Ints("disparity", disp[:]))

	return e.out.Bytes(), nil
}

// EncodeTo encodes the image and writes the container to w.
func (e *Encoder) EncodeTo(w io.Writer, img image.Image) error {
	data, err := e.Encode(img)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var encoderPool = sync.Pool{
	New: func() any {
		return NewEncoder()
	},
}

// Encode encodes img with a pooled Encoder.
func Encode(img image.Image) ([]byte, error) {
	e := encoderPool.Get().(*Encoder)
	defer encoderPool.Put(e)

	data, err := e.Encode(img)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(data), nil
}

// Decoder reads .tmds containers back into images.
type Decoder struct {
	raw  []byte
	zdec *zstd.Decoder
}

func NewDecoder() *Decoder {
	return &Decoder{zdec: mustNewZstdDecoder()}
}

// DecodeWords validates the header and returns the raw word stream.
func (d *Decoder) DecodeWords(data []byte) (Header, []tmds.Word, error) {
	r := bytes.NewReader(data)
	hdr, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, fmt.Errorf("header: %w", err)
	}

	if hdr.Words != frameWords(hdr.Width, hdr.Height) {
		return hdr, nil, fmt.Errorf("%w: %d words for %dx%d", ErrWordCount, hdr.Words, hdr.Width, hdr.Height)
	}

	// never inflate more than the header promises, plus one byte to spot overruns
	limit := int64(hdr.Words) * tmds.WordSize
	if err := d.zdec.Reset(bytes.NewReader(data[headerSize:])); err != nil {
		return hdr, nil, fmt.Errorf("zstd decode: %w", err)
	}
	buf := bytes.NewBuffer(d.raw[:0])
	n, err := buf.ReadFrom(io.LimitReader(d.zdec, limit+1))
	d.raw = buf.Bytes()
	if err != nil {
		return hdr, nil, fmt.Errorf("zstd decode: %w", err)
	}
	if n > limit {
		return hdr, nil, fmt.Errorf("%w: payload exceeds %d words", ErrWordCount, hdr.Words)
	}

	words, err := tmds.ParseWords(d.raw)
	if err != nil {
		return hdr, nil, err
	}
	if uint32(len(words)) != hdr.Words {
		return hdr, nil, fmt.Errorf("%w: header %d, payload %d", ErrWordCount, hdr.Words, len(words))
	}
	return hdr, words, nil
}

// Decode rebuilds the frame stored in data.
func (d *Decoder) Decode(data []byte) (*image.RGBA, error) {
	hdr, words, err := d.DecodeWords(data)
	if err != nil {
		return nil, err
	}

	first, err := tmds.DecodeWord(words[0])
	if err != nil {
		return nil, fmt.Errorf("word 0: %w", err)
	}
	if first.Active || !first.Sync.VSync {
		return nil, ErrFrameStart
	}

	img := image.NewRGBA(image.Rect(0, 0, hdr.Width, hdr.Height))
	for i, w := range words[1:] {
		tick, err := tmds.DecodeWord(w)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", i+1, err)
		}
		if !tick.Active {
			return nil, fmt.Errorf("word %d (%s): %w", i+1, tick.Sync, ErrUnexpectedBlanking)
		}
		setColor(img, i%hdr.Width, i/hdr.Width, tick.Color)
	}

	Logger().Debug("decoded frame",
		zap.Int("width", hdr.Width),
		zap.Int("height", hdr.Height),
		zap.Int("words", len(words)))

	return img, nil
}

// DecodeFrom reads a whole container from r and decodes it.
func (d *Decoder) DecodeFrom(r io.Reader) (*image.RGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

var decoderPool = sync.Pool{
	New: func() any {
		return NewDecoder()
	},
}

// Decode decodes data with a pooled Decoder.
func Decode(data []byte) (image.Image, error) {
	d := decoderPool.Get().(*Decoder)
	defer decoderPool.Put(d)
	return d.Decode(data)
}

// --- ZSTD helpers ---

func mustNewZstdEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustNewZstdDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(
		nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		panic(err)
	}
	return dec
}
