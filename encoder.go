package lpvc

import (
	"fmt"

	"github.com/coastalbyte/lpvc/internal/bitio"
	"github.com/coastalbyte/lpvc/internal/block"
	"github.com/coastalbyte/lpvc/internal/entropy"
	"github.com/coastalbyte/lpvc/internal/palette"
)

// EncodeResult is what Encoder.Encode reports back about the frame it
// just wrote.
type EncodeResult struct {
	BytesWritten int
	KeyFrame     bool
}

// Encoder holds all per-stream state for encoding a sequence of frames
// of a fixed BitmapInfo. Construct one per
// stream and reuse it for every frame; it is not safe for concurrent
// use by multiple goroutines.
type Encoder struct {
	info     BitmapInfo
	settings Settings

	currentPalette palette.Palette
	colorToIndex   *palette.Index
	previousFrame  []Color
	frameScratch   []Color
	haveFrame      bool // previousFrame/frameScratch hold a real frame
	firstFrame     bool

	builder *palette.Builder
	codec   *entropy.Codec
}

// NewEncoder constructs an Encoder for the given frame geometry and
// settings. All internal buffers are allocated once, here.
func NewEncoder(info BitmapInfo, settings Settings) (*Encoder, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	codec, err := entropy.New(entropy.Settings{
		Level:       settings.ZstdCompressionLevel,
		WorkerCount: settings.ZstdWorkerCount,
	})
	if err != nil {
		return nil, err
	}

	n := info.FrameSize()
	return &Encoder{
		info:           info,
		settings:       settings,
		currentPalette: palette.Empty,
		colorToIndex:   palette.NewIndex(),
		previousFrame:  make([]Color, n),
		frameScratch:   make([]Color, n),
		firstFrame:     true,
		builder:        palette.NewBuilder(),
		codec:          codec,
	}, nil
}

// Close releases the encoder's entropy codec session.
func (e *Encoder) Close() {
	e.codec.Close()
}

// SafeOutputBufferSize returns a byte count >= the largest number of
// bytes any single Encode call can write for this Encoder's configured
// BitmapInfo.
func (e *Encoder) SafeOutputBufferSize() int {
	n := e.info.FrameSize()

	const tagSize = 1
	const lengthPrefixSize = 4

	bound := func(uncompressed int) int {
		return tagSize + lengthPrefixSize + compressBound(uncompressed)
	}

	kfOverhead := tagSize // KeyFrame block itself

	paletteResetBlock := tagSize
	paletteBlock := bound(1 + palette.MaxColors*3)
	indexedBitmapBlock := bound(1 + (n*8+7)/8)
	paletteIndexedPath := paletteResetBlock + paletteBlock + indexedBitmapBlock

	rawBitmapBlock := bound(n * 3)

	solidColorBlock := tagSize + 3

	largest := paletteIndexedPath
	if rawBitmapBlock > largest {
		largest = rawBitmapBlock
	}
	if solidColorBlock > largest {
		largest = solidColorBlock
	}

	return kfOverhead + largest
}

// compressBound returns the zstd worst-case compressed size of an
// uncompressed payload of the given length.
func compressBound(uncompressedSize int) int {
	// zstd's documented worst case is input size plus a small constant
	// overhead per frame/block; this is never smaller than the bound the
	// reference zstd library itself reports via ZSTD_compressBound.
	return uncompressedSize + uncompressedSize/256 + 128
}

// reset clears palette state, drops the previous frame, and resets the
// entropy session, keeping configured parameters.
func (e *Encoder) reset() error {
	e.resetPalette()
	e.haveFrame = false
	return e.codec.Reset()
}

// resetPalette clears only the palette and its index.
func (e *Encoder) resetPalette() {
	e.currentPalette = palette.Empty
	e.colorToIndex.Clear()
}

// Encode compresses input into output and returns how many bytes were
// written along with whether the frame was ultimately coded as a key
// frame. input must contain exactly e.info.FrameSize() colors; output
// must have capacity >= e.SafeOutputBufferSize().
func (e *Encoder) Encode(input Bitmap, output []byte, requestKeyFrame bool) (EncodeResult, error) {
	n := e.info.FrameSize()
	if len(input) != n {
		return EncodeResult{}, fmt.Errorf("lpvc: input has %d pixels, want %d", len(input), n)
	}

	keyFrame := requestKeyFrame || e.firstFrame
	e.firstFrame = false

	w := bitio.NewWriter(output)

	if keyFrame {
		if err := block.EncodeKeyFrame(w); err != nil {
			return EncodeResult{}, err
		}
		if err := e.reset(); err != nil {
			return EncodeResult{}, err
		}
	}

	if !keyFrame && e.haveFrame && framesEqual(e.previousFrame, input) {
		if err := block.EncodeNullBitmap(w); err != nil {
			return EncodeResult{}, err
		}
		return EncodeResult{BytesWritten: w.Offset(), KeyFrame: keyFrame}, nil
	}

	if e.settings.UsePalette {
		if err := e.encodePalettePath(w, input); err != nil {
			return EncodeResult{}, err
		}
	} else {
		copy(e.frameScratch, input)
		if err := block.EncodeRawBitmap(w, e.codec, e.frameScratch); err != nil {
			return EncodeResult{}, err
		}
	}

	copy(e.previousFrame, e.frameScratch)
	e.haveFrame = true

	return EncodeResult{BytesWritten: w.Offset(), KeyFrame: keyFrame}, nil
}

// encodePalettePath builds the frame's
// distinct-color set, and depending on its size emit SolidColorBitmap,
// update the palette and emit IndexedBitmap, or fall back to
// RawBitmap.
func (e *Encoder) encodePalettePath(w *bitio.Writer, input Bitmap) error {
	e.builder.Reset()
	for _, c := range input {
		if !e.builder.Add(c) {
			break
		}
	}

	if e.builder.Overflowed() {
		copy(e.frameScratch, input)
		return block.EncodeRawBitmap(w, e.codec, e.frameScratch)
	}

	newPalette := e.builder.Build()

	if newPalette.Len() == 1 {
		c := newPalette.At(0)
		if err := block.EncodeSolidColorBitmap(w, c); err != nil {
			return err
		}
		for i := range e.frameScratch {
			e.frameScratch[i] = c
		}
		return nil
	}

	if err := e.updatePalette(w, newPalette); err != nil {
		return err
	}

	copy(e.frameScratch, input)
	return block.EncodeIndexedBitmap(w, e.codec, e.currentPalette, e.colorToIndex, e.frameScratch)
}

// updatePalette runs the palette update procedure:
// decide between no-op, an incremental Palette(delta), or a
// PaletteReset followed by a full Palette(newPalette) replacement, then
// merge whichever colors were emitted into the current palette and
// rebuild the color->index map from the merged result.
//
// The same merge-and-rebuild path runs for both replacement and
// incremental emission; callers rely on PaletteReset having already
// emptied currentPalette before the replacement branch merges newPalette
// into it, which is what makes that branch behave as a true
// replacement rather than a union with stale entries.
func (e *Encoder) updatePalette(w *bitio.Writer, newPalette palette.Palette) error {
	delta := e.currentPalette.Difference(newPalette)
	if len(delta) == 0 {
		return nil
	}

	bits := newPalette.Bits()
	capacity := 1 << bits
	var emitted []palette.Color

	if e.currentPalette.Len()+len(delta) > capacity {
		if e.currentPalette.Len() > 0 {
			if err := block.EncodePaletteReset(w); err != nil {
				return err
			}
			e.resetPalette()
		}
		if err := block.EncodePalette(w, e.codec, newPalette.Colors()); err != nil {
			return err
		}
		emitted = newPalette.Colors()
	} else {
		if err := block.EncodePalette(w, e.codec, delta); err != nil {
			return err
		}
		emitted = delta
	}

	emittedPalette, err := palette.New(emitted)
	if err != nil {
		return err
	}
	e.currentPalette = e.currentPalette.Merge(emittedPalette)
	e.colorToIndex.Rebuild(e.currentPalette)
	return nil
}

func framesEqual(a, b []Color) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
