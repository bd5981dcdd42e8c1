// Command lpvcstream encodes and decodes directories of equally-sized
// PNG frames through the lpvc codec, and runs the library's concrete
// scenario sweeps for a CSV report. It is adapted from the single-image
// encode/decode flow of the library's original command-line tool.
package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/coastalbyte/lpvc"
	"github.com/coastalbyte/lpvc/internal/report"
)

var streamMagic = [4]byte{'L', 'P', 'V', 'C'}

func main() {
	app := &cli.App{
		Name:  "lpvcstream",
		Usage: "encode/decode directories of PNG frames with lpvc, or run scenario sweeps",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "encode frame-NNNN.png files in a directory into a .lpvc stream",
				ArgsUsage: "INPUT_DIR OUTPUT_FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-palette", Usage: "disable the palette path"},
					&cli.IntFlag{Name: "zstd-level", Value: 18, Usage: "zstd compression level"},
					&cli.IntFlag{Name: "key-frame-interval", Value: 0, Usage: "force a key frame every N frames (0 = only the first)"},
				},
				Action: runEncode,
			},
			{
				Name:      "decode",
				Usage:     "decode a .lpvc stream into frame-NNNN.png files",
				ArgsUsage: "INPUT_FILE OUTPUT_DIR",
				Action:    runDecode,
			},
			{
				Name:      "scenario",
				Usage:     "run the library's concrete scenario sweeps and write a CSV report",
				ArgsUsage: "OUTPUT_CSV",
				Action:    runScenario,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("lpvcstream: %s", err)
	}
}

// framePaths returns the sorted frame-*.png files in dir.
func framePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("lpvcstream: reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if ok, _ := filepath.Match("frame-*.png", e.Name()); e.IsDir() || !ok {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func loadBitmap(path string) (lpvc.Bitmap, lpvc.BitmapInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, lpvc.BitmapInfo{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, lpvc.BitmapInfo{}, fmt.Errorf("lpvcstream: decoding %s: %w", path, err)
	}

	bounds := img.Bounds()
	info := lpvc.BitmapInfo{Width: bounds.Dx(), Height: bounds.Dy()}
	bitmap := make(lpvc.Bitmap, info.FrameSize())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			bitmap[i] = lpvc.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
			i++
		}
	}
	return bitmap, info, nil
}

func saveBitmap(path string, info lpvc.BitmapInfo, bitmap lpvc.Bitmap) error {
	img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	i := 0
	for y := 0; y < info.Height; y++ {
		for x := 0; x < info.Width; x++ {
			c := bitmap[i]
			img.Set(x, y, colorRGBA{c})
			i++
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// colorRGBA adapts lpvc.Color to image/color.Color without pulling in a
// full palette/NRGBA conversion for what is already exact 24-bit RGB.
type colorRGBA struct {
	c lpvc.Color
}

func (c colorRGBA) RGBA() (r, g, b, a uint32) {
	r = uint32(c.c.R) * 0x101
	g = uint32(c.c.G) * 0x101
	b = uint32(c.c.B) * 0x101
	a = 0xffff
	return
}

func writeFrame(w io.Writer, payload []byte) error {
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, binary.LittleEndian.Uint32(length[:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func runEncode(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("lpvcstream encode: expected INPUT_DIR OUTPUT_FILE")
	}
	inputDir, outputPath := c.Args().Get(0), c.Args().Get(1)

	paths, err := framePaths(inputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("lpvcstream encode: no frame-*.png files found in %s", inputDir)
	}

	_, info, err := loadBitmap(paths[0])
	if err != nil {
		return err
	}

	settings := lpvc.DefaultSettings()
	settings.UsePalette = !c.Bool("no-palette")
	settings.ZstdCompressionLevel = c.Int("zstd-level")

	enc, err := lpvc.NewEncoder(info, settings)
	if err != nil {
		return err
	}
	defer enc.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var header [12]byte
	copy(header[0:4], streamMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], uint32(info.Width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(info.Height))
	if _, err := out.Write(header[:]); err != nil {
		return err
	}

	interval := c.Int("key-frame-interval")
	outBuf := make([]byte, enc.SafeOutputBufferSize())

	for i, path := range paths {
		bitmap, frameInfo, err := loadBitmap(path)
		if err != nil {
			return err
		}
		if frameInfo != info {
			return fmt.Errorf("lpvcstream encode: %s is %dx%d, want %dx%d", path, frameInfo.Width, frameInfo.Height, info.Width, info.Height)
		}

		requestKeyFrame := interval > 0 && i%interval == 0
		res, err := enc.Encode(bitmap, outBuf, requestKeyFrame)
		if err != nil {
			return fmt.Errorf("lpvcstream encode: frame %d (%s): %w", i, path, err)
		}
		if err := writeFrame(out, outBuf[:res.BytesWritten]); err != nil {
			return err
		}
	}

	fmt.Printf("Encoded %d frames (%dx%d) to %s\n", len(paths), info.Width, info.Height, outputPath)
	return nil
}

func runDecode(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("lpvcstream decode: expected INPUT_FILE OUTPUT_DIR")
	}
	inputPath, outputDir := c.Args().Get(0), c.Args().Get(1)

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var header [12]byte
	if _, err := io.ReadFull(in, header[:]); err != nil {
		return fmt.Errorf("lpvcstream decode: reading header: %w", err)
	}
	if string(header[0:4]) != string(streamMagic[:]) {
		return fmt.Errorf("lpvcstream decode: %s is not an lpvc stream", inputPath)
	}
	info := lpvc.BitmapInfo{
		Width:  int(binary.LittleEndian.Uint32(header[4:8])),
		Height: int(binary.LittleEndian.Uint32(header[8:12])),
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	dec, err := lpvc.NewDecoder(info)
	if err != nil {
		return err
	}
	defer dec.Close()

	for i := 0; ; i++ {
		payload, err := readFrame(in)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("lpvcstream decode: frame %d: %w", i, err)
		}

		bitmap := make(lpvc.Bitmap, info.FrameSize())
		if _, err := dec.Decode(payload, bitmap); err != nil {
			return fmt.Errorf("lpvcstream decode: frame %d: %w", i, err)
		}

		framePath := filepath.Join(outputDir, fmt.Sprintf("frame-%04d.png", i))
		if err := saveBitmap(framePath, info, bitmap); err != nil {
			return err
		}
	}

	fmt.Printf("Decoded %s into %s\n", inputPath, outputDir)
	return nil
}

func runScenario(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("lpvcstream scenario: expected OUTPUT_CSV")
	}
	outputPath := c.Args().Get(0)

	sink := report.NewSink()
	runPaletteWaveScenario(sink)
	runRepeatAndSolidScenario(sink)

	if err := sink.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "lpvcstream scenario: some frames failed: %s\n", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := sink.WriteCSV(out); err != nil {
		return err
	}

	fmt.Printf("Wrote scenario report to %s\n", outputPath)
	return nil
}
