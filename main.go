package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/svanichkin/hdmi/tmds"
)

var errTerminalOutput = errors.New("refusing to write binary output to a terminal")

func main() {
	var (
		outPath = flag.String("o", "", "Output path (\"-\" for stdout)")
		dump    = flag.Bool("dump", false, "Print the words of a .tmds file")
		serial  = flag.Bool("serial", false, "Encode lanes sequentially")
		verbose = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Encode: hdmi [-v] [-serial] [-o out.tmds] <input-image>\n"+
			"Decode: hdmi [-v] [-o out.png] <input.tmds>\n"+
			"Dump:   hdmi -dump [-o out.txt] <input.tmds>\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	SetLogger(log)
	defer func() { _ = log.Sync() }()

	if err := run(flag.Arg(0), *outPath, *dump, !*serial); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, dump, parallel bool) error {
	ext := strings.ToLower(filepath.Ext(inPath))
	base := strings.TrimSuffix(inPath, filepath.Ext(inPath))

	if dump {
		return dumpToFile(inPath, outPath)
	}

	// If input is .tmds → decode to PNG
	if ext == ".tmds" {
		if outPath == "" {
			outPath = base + ".png"
		}
		if err := decodeTMDS(inPath, outPath); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		Logger().Info("decoded", zap.String("in", inPath), zap.String("out", outPath))
		return nil
	}

	// Otherwise: encode image → .tmds
	if outPath == "" {
		outPath = base + ".tmds"
	}
	if err := encodeToTMDS(inPath, outPath, parallel); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	Logger().Info("encoded", zap.String("in", inPath), zap.String("out", outPath))
	return nil
}

// createOutput opens path for writing; "-" means stdout unless it is a terminal.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errTerminalOutput
		}
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func encodeToTMDS(inPath, outPath string, parallel bool) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	img, format, err := image.Decode(bufio.NewReader(in))
	if err != nil {
		return err
	}
	Logger().Debug("loaded image",
		zap.String("path", inPath),
		zap.String("format", format),
		zap.Stringer("bounds", img.Bounds()))

	enc := NewEncoder()
	enc.Parallel = parallel

	out, err := createOutput(outPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	return enc.EncodeTo(out, img)
}

func decodeTMDS(inPath, outPath string) (err error) {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, in.Close()) }()

	dec, err := NewDecoder().DecodeFrom(in)
	if err != nil {
		return err
	}

	out, err := createOutput(outPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()

	return png.Encode(out, dec)
}

// dumpToFile writes the dump to outPath, or to stdout when it is empty or "-".
// The dump is text, so a terminal is a fine destination.
func dumpToFile(inPath, outPath string) (err error) {
	if outPath == "" || outPath == "-" {
		return dumpTMDS(inPath, os.Stdout)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, out.Close()) }()
	return dumpTMDS(inPath, out)
}

// dumpTMDS prints one line per word: index, hex word, the three lane symbols
// and the tick they decode to.
func dumpTMDS(inPath string, w io.Writer) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	hdr, words, err := NewDecoder().DecodeWords(data)
	if err != nil {
		return err
	}
	return writeDump(w, hdr, words)
}

func writeDump(w io.Writer, hdr Header, words []tmds.Word) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "frame %dx%d, %d words\n", hdr.Width, hdr.Height, hdr.Words)

	var transitions, inverted int
	for i, word := range words {
		a, b, c := word.Lanes()
		fmt.Fprintf(bw, "%8d  %08x  C=%010b B=%010b A=%010b  ", i, uint32(word), c, b, a)

		tick, err := tmds.DecodeWord(word)
		switch {
		case err != nil:
			fmt.Fprintf(bw, "invalid: %v\n", err)
		case tick.Active:
			fmt.Fprintf(bw, "pixel #%02x%02x%02x\n", tick.Color.R, tick.Color.G, tick.Color.B)
		default:
			fmt.Fprintf(bw, "blank %s\n", tick.Sync)
		}

		for _, s := range [...]tmds.Symbol{a, b, c} {
			transitions += tmds.Transitions(s)
			if !tmds.IsControl(s) && s&(1<<9) != 0 {
				inverted++
			}
		}
	}

	if n := len(words); n > 0 {
		fmt.Fprintf(bw, "avg transitions/symbol %.2f, inverted symbols %d\n",
			float64(transitions)/float64(3*n), inverted)
	}
	return bw.Flush()
}
