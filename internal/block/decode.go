package block

import (
	"fmt"

	"github.com/coastalbyte/lpvc/internal/bitio"
	"github.com/coastalbyte/lpvc/internal/entropy"
	"github.com/coastalbyte/lpvc/internal/pack"
	"github.com/coastalbyte/lpvc/internal/palette"
)

// DecodeContext carries the per-call state a block's decode routine
// reads from and mutates. Frame is the "frame_scratch" buffer being
// filled for the current call; PreviousFrame is the last successfully
// decoded frame (read-only, used by NullBitmap); Scratch is a reusable
// byte buffer sized to the largest uncompressed payload any block can
// produce, mirroring the encoder's own scratch buffer.
type DecodeContext struct {
	Palette       palette.Palette
	Frame         []palette.Color
	PreviousFrame []palette.Color
	Codec         *entropy.Codec
	Scratch       []byte

	KeyFrame bool
}

// Decode reads one block's payload (the tag byte itself has already
// been consumed by the caller) and applies its effect to ctx. It is a
// plain switch over the seven known tags; an unrecognized tag is fatal.
func Decode(tag Tag, r *bitio.Reader, ctx *DecodeContext) error {
	switch tag {
	case TagKeyFrame:
		return decodeKeyFrame(ctx)
	case TagPalette:
		return decodePalette(r, ctx)
	case TagPaletteReset:
		return decodePaletteReset(ctx)
	case TagIndexedBitmap:
		return decodeIndexedBitmap(r, ctx)
	case TagRawBitmap:
		return decodeRawBitmap(r, ctx)
	case TagSolidColorBitmap:
		return decodeSolidColorBitmap(r, ctx)
	case TagNullBitmap:
		return decodeNullBitmap(ctx)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownTag, tag)
	}
}

func decodeKeyFrame(ctx *DecodeContext) error {
	ctx.Palette = palette.Empty
	ctx.KeyFrame = true
	return nil
}

func decodePaletteReset(ctx *DecodeContext) error {
	ctx.Palette = palette.Empty
	return nil
}

func decodeNullBitmap(ctx *DecodeContext) error {
	copy(ctx.Frame, ctx.PreviousFrame)
	return nil
}

func decodeSolidColorBitmap(r *bitio.Reader, ctx *DecodeContext) error {
	rb, err := r.Uint8()
	if err != nil {
		return err
	}
	gb, err := r.Uint8()
	if err != nil {
		return err
	}
	bb, err := r.Uint8()
	if err != nil {
		return err
	}
	c := palette.Color{R: rb, G: gb, B: bb}
	for i := range ctx.Frame {
		ctx.Frame[i] = c
	}
	return nil
}

func decodePalette(r *bitio.Reader, ctx *DecodeContext) error {
	n, err := ctx.Codec.DecompressInto(r, ctx.Scratch)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("block: palette payload truncated (no count byte)")
	}
	payload := ctx.Scratch[:n]
	count := int(payload[0]) + 1
	if 1+count*3 != n {
		return fmt.Errorf("block: palette payload size %d doesn't match count %d", n, count)
	}
	colors := make([]palette.Color, count)
	for i := 0; i < count; i++ {
		off := 1 + i*3
		colors[i] = palette.Color{R: payload[off], G: payload[off+1], B: payload[off+2]}
	}
	decoded, err := palette.New(colors)
	if err != nil {
		return err
	}
	ctx.Palette = ctx.Palette.Merge(decoded)
	return nil
}

func decodeIndexedBitmap(r *bitio.Reader, ctx *DecodeContext) error {
	n, err := ctx.Codec.DecompressInto(r, ctx.Scratch)
	if err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("block: indexed bitmap payload truncated (no bits byte)")
	}
	payload := ctx.Scratch[:n]
	bits := payload[0]

	indices, err := pack.Unpack(payload[1:], len(ctx.Frame), bits)
	if err != nil {
		return err
	}
	for i, idx := range indices {
		if idx < 0 || idx >= ctx.Palette.Len() {
			return fmt.Errorf("block: palette index %d at pixel %d out of range (palette size %d)", idx, i, ctx.Palette.Len())
		}
		ctx.Frame[i] = ctx.Palette.At(idx)
	}
	return nil
}

func decodeRawBitmap(r *bitio.Reader, ctx *DecodeContext) error {
	want := len(ctx.Frame) * 3
	n, err := ctx.Codec.DecompressInto(r, ctx.Scratch)
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("block: raw bitmap payload is %d bytes, want %d", n, want)
	}
	payload := ctx.Scratch[:n]
	for i := range ctx.Frame {
		off := i * 3
		ctx.Frame[i] = palette.Color{R: payload[off], G: payload[off+1], B: payload[off+2]}
	}
	return nil
}
