package block

import (
	"fmt"

	"github.com/coastalbyte/lpvc/internal/bitio"
	"github.com/coastalbyte/lpvc/internal/entropy"
	"github.com/coastalbyte/lpvc/internal/pack"
	"github.com/coastalbyte/lpvc/internal/palette"
)

// EncodeKeyFrame writes an empty KeyFrame block. The caller (Encoder)
// is responsible for performing the reset the block implies.
func EncodeKeyFrame(w *bitio.Writer) error {
	return w.PutUint8(uint8(TagKeyFrame))
}

// EncodePaletteReset writes an empty PaletteReset block.
func EncodePaletteReset(w *bitio.Writer) error {
	return w.PutUint8(uint8(TagPaletteReset))
}

// EncodeNullBitmap writes an empty NullBitmap block.
func EncodeNullBitmap(w *bitio.Writer) error {
	return w.PutUint8(uint8(TagNullBitmap))
}

// EncodeSolidColorBitmap writes a SolidColorBitmap block: three raw,
// uncompressed RGB bytes.
func EncodeSolidColorBitmap(w *bitio.Writer, c palette.Color) error {
	if err := w.PutUint8(uint8(TagSolidColorBitmap)); err != nil {
		return err
	}
	if err := w.PutUint8(c.R); err != nil {
		return err
	}
	if err := w.PutUint8(c.G); err != nil {
		return err
	}
	return w.PutUint8(c.B)
}

// EncodePalette writes a Palette block carrying colors (either a delta
// or a full replacement; the caller decides which via the encoder's
// palette update procedure). colors must be non-empty and sorted.
func EncodePalette(w *bitio.Writer, codec *entropy.Codec, colors []palette.Color) error {
	if len(colors) == 0 {
		return fmt.Errorf("block: palette block requires at least one color")
	}
	if len(colors) > palette.MaxColors {
		return fmt.Errorf("block: palette block of %d colors exceeds %d", len(colors), palette.MaxColors)
	}
	if err := w.PutUint8(uint8(TagPalette)); err != nil {
		return err
	}

	payload := make([]byte, 1+len(colors)*3)
	payload[0] = byte(len(colors) - 1)
	for i, c := range colors {
		payload[1+i*3] = c.R
		payload[1+i*3+1] = c.G
		payload[1+i*3+2] = c.B
	}
	return codec.CompressInto(w, payload)
}

// EncodeIndexedBitmap writes an IndexedBitmap block: the current
// palette's bit width followed by the frame packed as palette indices.
// pal and idx must already reflect the palette the encoder committed to
// for this frame (the encoder's palette update procedure runs before
// this is called).
func EncodeIndexedBitmap(w *bitio.Writer, codec *entropy.Codec, pal palette.Palette, idx *palette.Index, frame []palette.Color) error {
	bits := pal.Bits()
	if bits == 0 {
		return fmt.Errorf("block: indexed bitmap requires a multi-color palette, got %d colors", pal.Len())
	}
	if err := w.PutUint8(uint8(TagIndexedBitmap)); err != nil {
		return err
	}

	indices := make([]int, len(frame))
	for i, c := range frame {
		pi, ok := idx.Lookup(c)
		if !ok {
			return fmt.Errorf("block: color %s at pixel %d not present in current palette", c, i)
		}
		indices[i] = pi
	}
	packed := pack.Pack(indices, bits)

	payload := make([]byte, 1+len(packed))
	payload[0] = bits
	copy(payload[1:], packed)
	return codec.CompressInto(w, payload)
}

// EncodeRawBitmap writes a RawBitmap block: the frame's N*3 RGB bytes,
// entropy-coded.
func EncodeRawBitmap(w *bitio.Writer, codec *entropy.Codec, frame []palette.Color) error {
	if err := w.PutUint8(uint8(TagRawBitmap)); err != nil {
		return err
	}
	payload := make([]byte, len(frame)*3)
	for i, c := range frame {
		payload[i*3] = c.R
		payload[i*3+1] = c.G
		payload[i*3+2] = c.B
	}
	return codec.CompressInto(w, payload)
}
