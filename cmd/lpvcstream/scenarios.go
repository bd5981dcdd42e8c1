package main

import (
	"fmt"

	"github.com/coastalbyte/lpvc"
	"github.com/coastalbyte/lpvc/internal/report"
)

// paletteWaveFrame builds a frame of info's size containing
// min(colorCount, frame size) distinct colors.
func paletteWaveFrame(info lpvc.BitmapInfo, colorCount, seed int) lpvc.Bitmap {
	n := info.FrameSize()
	frame := make(lpvc.Bitmap, n)
	if colorCount < 1 {
		colorCount = 1
	}
	for i := 0; i < n; i++ {
		v := (i + seed) % colorCount
		frame[i] = lpvc.Color{R: uint8(v), G: uint8(v >> 8), B: uint8(seed)}
	}
	return frame
}

func blockTag(payload []byte) string {
	if len(payload) == 0 {
		return "empty"
	}
	switch payload[0] {
	case 0:
		return "KeyFrame"
	case 1:
		return "Palette"
	case 2:
		return "PaletteReset"
	case 3:
		return "IndexedBitmap"
	case 4:
		return "RawBitmap"
	case 5:
		return "SolidColorBitmap"
	case 6:
		return "NullBitmap"
	default:
		return "Unknown"
	}
}

// runPaletteWaveScenario sweeps color_count from 1 through N+32 on a
// 17x17 bitmap with request_key_frame alternating, recording one row
// per frame.
func runPaletteWaveScenario(sink *report.Sink) {
	info := lpvc.BitmapInfo{Width: 17, Height: 17}
	n := info.FrameSize()

	enc, err := lpvc.NewEncoder(info, lpvc.DefaultSettings())
	if err != nil {
		sink.Add(report.Row{Scenario: "palette-wave"}, fmt.Errorf("palette-wave: NewEncoder: %w", err))
		return
	}
	defer enc.Close()

	outBuf := make([]byte, enc.SafeOutputBufferSize())
	for colorCount := 1; colorCount <= n+32; colorCount++ {
		frame := paletteWaveFrame(info, colorCount, colorCount)
		requestKeyFrame := colorCount%2 == 0

		res, err := enc.Encode(frame, outBuf, requestKeyFrame)
		row := report.Row{
			Scenario:     "palette-wave",
			Frame:        colorCount - 1,
			Tag:          blockTag(outBuf[:min(len(outBuf), 1)]),
			BytesWritten: res.BytesWritten,
			KeyFrame:     res.KeyFrame,
			PaletteSize:  colorCount,
		}
		if err != nil {
			sink.Add(row, fmt.Errorf("palette-wave: frame %d: %w", colorCount-1, err))
			continue
		}
		sink.Add(row, nil)
	}
}

// runRepeatAndSolidScenario covers the repeated-frame NullBitmap check
// and the single-color SolidColorBitmap check.
func runRepeatAndSolidScenario(sink *report.Sink) {
	info := lpvc.BitmapInfo{Width: 4, Height: 4}
	n := info.FrameSize()

	enc, err := lpvc.NewEncoder(info, lpvc.DefaultSettings())
	if err != nil {
		sink.Add(report.Row{Scenario: "repeat-and-solid"}, fmt.Errorf("repeat-and-solid: NewEncoder: %w", err))
		return
	}
	defer enc.Close()

	outBuf := make([]byte, enc.SafeOutputBufferSize())

	solid := make(lpvc.Bitmap, n)
	for i := range solid {
		solid[i] = lpvc.Color{R: 7, G: 7, B: 7}
	}

	frames := []lpvc.Bitmap{solid, solid}
	for i, frame := range frames {
		res, err := enc.Encode(frame, outBuf, false)
		row := report.Row{
			Scenario:     "repeat-and-solid",
			Frame:        i,
			Tag:          blockTag(outBuf[:min(len(outBuf), 1)]),
			BytesWritten: res.BytesWritten,
			KeyFrame:     res.KeyFrame,
			PaletteSize:  1,
		}
		if err != nil {
			sink.Add(row, fmt.Errorf("repeat-and-solid: frame %d: %w", i, err))
			continue
		}
		sink.Add(row, nil)
	}
}
