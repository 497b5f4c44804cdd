package tmds

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// WordSize is the serialized size of one Word.
const WordSize = 4

// ErrTruncatedWord is returned when a word stream ends mid-word.
var ErrTruncatedWord = errors.New("tmds: truncated word")

// Stream feeds ticks through a Composer and writes the resulting words,
// little-endian, to an io.Writer. Call Flush when done.
type Stream struct {
	cp    *Composer
	bw    *bufio.Writer
	buf   [WordSize]byte
	row   []Word
	words int
}

// NewStream returns a Stream writing to w with a freshly reset composer.
func NewStream(w io.Writer) *Stream {
	return NewStreamWith(w, NewComposer())
}

// NewStreamWith is NewStream with a caller-supplied composer.
func NewStreamWith(w io.Writer, cp *Composer) *Stream {
	return &Stream{cp: cp, bw: bufio.NewWriter(w)}
}

// Composer exposes the composer driving the stream.
func (s *Stream) Composer() *Composer { return s.cp }

// Words returns how many words have been written.
func (s *Stream) Words() int { return s.words }

// WriteTick encodes and writes one tick.
func (s *Stream) WriteTick(t Tick) error {
	return s.writeWord(s.cp.EncodeTick(t))
}

// WriteRow encodes and writes a run of active pixels.
func (s *Stream) WriteRow(row []Color) error {
	s.row = s.cp.EncodeRow(row, s.row[:0])
	for _, w := range s.row {
		if err := s.writeWord(w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) writeWord(w Word) error {
	binary.LittleEndian.PutUint32(s.buf[:], uint32(w))
	if _, err := s.bw.Write(s.buf[:]); err != nil {
		return err
	}
	s.words++
	return nil
}

// Flush writes any buffered words to the underlying writer.
func (s *Stream) Flush() error {
	return s.bw.Flush()
}

// ReadWords reads a little-endian word stream until EOF.
func ReadWords(r io.Reader) ([]Word, error) {
	br := bufio.NewReader(r)
	var (
		words []Word
		buf   [WordSize]byte
	)
	for {
		_, err := io.ReadFull(br, buf[:])
		switch {
		case err == io.EOF:
			return words, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return words, ErrTruncatedWord
		case err != nil:
			return words, err
		}
		words = append(words, Word(binary.LittleEndian.Uint32(buf[:])))
	}
}

// AppendWords serializes words onto dst.
func AppendWords(dst []byte, words []Word) []byte {
	for _, w := range words {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(w))
	}
	return dst
}

// ParseWords is ReadWords over an in-memory buffer.
func ParseWords(data []byte) ([]Word, error) {
	if len(data)%WordSize != 0 {
		return nil, ErrTruncatedWord
	}
	words := make([]Word, 0, len(data)/WordSize)
	for i := 0; i < len(data); i += WordSize {
		words = append(words, Word(binary.LittleEndian.Uint32(data[i:])))
	}
	return words, nil
}
