package lpvc

import (
	"fmt"

	"github.com/coastalbyte/lpvc/internal/bitio"
	"github.com/coastalbyte/lpvc/internal/block"
	"github.com/coastalbyte/lpvc/internal/entropy"
	"github.com/coastalbyte/lpvc/internal/palette"
)

// DecodeResult is what Decoder.Decode reports back about the frame it
// just read.
type DecodeResult struct {
	KeyFrame bool
}

// Decoder mirrors Encoder's state: a fixed
// BitmapInfo, the palette built up across blocks, the previously
// decoded frame, and a streaming entropy decompressor session.
type Decoder struct {
	info BitmapInfo

	currentPalette palette.Palette
	previousFrame  []Color
	frameScratch   []Color
	scratch        []byte

	codec *entropy.Codec
}

// NewDecoder constructs a Decoder for the given frame geometry. All
// internal buffers are allocated once, here.
func NewDecoder(info BitmapInfo) (*Decoder, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}

	codec, err := entropy.New(entropy.Settings{Level: 3, WorkerCount: 1})
	if err != nil {
		return nil, err
	}

	n := info.FrameSize()
	return &Decoder{
		info:          info,
		previousFrame: make([]Color, n),
		frameScratch:  make([]Color, n),
		scratch:       make([]byte, scratchCapacity(n)),
		codec:         codec,
	}, nil
}

// scratchCapacity sizes the decompression scratch buffer to the largest
// uncompressed payload any block can produce for a frame of n pixels.
func scratchCapacity(n int) int {
	paletteMax := 1 + palette.MaxColors*3
	indexedMax := 1 + (n*8+7)/8
	rawMax := n * 3

	largest := paletteMax
	if indexedMax > largest {
		largest = indexedMax
	}
	if rawMax > largest {
		largest = rawMax
	}
	return largest
}

// Close releases the decoder's entropy codec session.
func (d *Decoder) Close() {
	d.codec.Close()
}

// reset mirrors Encoder.reset: clears the palette, drops
// the previous frame, and resets the entropy session.
func (d *Decoder) reset() error {
	d.currentPalette = palette.Empty
	for i := range d.previousFrame {
		d.previousFrame[i] = Color{}
	}
	return d.codec.Reset()
}

// Decode reads one frame's worth of blocks from input and writes the
// resulting pixels into output. output must accept exactly
// d.info.FrameSize() colors. The first block of a fresh Decoder's first
// call must be a KeyFrame; this is not verified.
func (d *Decoder) Decode(input []byte, output Bitmap) (DecodeResult, error) {
	n := d.info.FrameSize()
	if len(output) != n {
		return DecodeResult{}, fmt.Errorf("lpvc: output has %d pixels, want %d", len(output), n)
	}

	r := bitio.NewReader(input)
	ctx := &block.DecodeContext{
		Palette:       d.currentPalette,
		Frame:         d.frameScratch,
		PreviousFrame: d.previousFrame,
		Codec:         d.codec,
		Scratch:       d.scratch,
	}

	for !r.AtEnd() {
		tagByte, err := r.Uint8()
		if err != nil {
			return DecodeResult{}, err
		}
		tag := block.Tag(tagByte)

		if tag == block.TagKeyFrame {
			if err := d.reset(); err != nil {
				return DecodeResult{}, err
			}
			ctx.Palette = palette.Empty
		}

		if err := block.Decode(tag, r, ctx); err != nil {
			return DecodeResult{}, err
		}
	}

	d.currentPalette = ctx.Palette
	copy(output, d.frameScratch)
	copy(d.previousFrame, d.frameScratch)

	return DecodeResult{KeyFrame: ctx.KeyFrame}, nil
}
