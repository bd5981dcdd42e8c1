package lpvc

import (
	"fmt"

	"github.com/coastalbyte/lpvc/internal/palette"
)

// Color is a 24-bit RGB pixel.
type Color = palette.Color

// BitmapInfo fixes the frame geometry an Encoder/Decoder pair is
// constructed for. It does not change over the lifetime of either.
type BitmapInfo struct {
	Width  int
	Height int
}

// FrameSize returns N = Width*Height, the number of pixels in one frame.
func (bi BitmapInfo) FrameSize() int {
	return bi.Width * bi.Height
}

// Validate reports whether bi describes a usable, positive-area bitmap.
func (bi BitmapInfo) Validate() error {
	if bi.Width <= 0 || bi.Height <= 0 {
		return fmt.Errorf("lpvc: invalid bitmap info %dx%d: both dimensions must be positive", bi.Width, bi.Height)
	}
	return nil
}

// Bitmap is a sequence of exactly BitmapInfo.FrameSize() colors in
// row-major order.
type Bitmap []Color
