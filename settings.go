package lpvc

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Settings configures an Encoder. The zero value is not valid; use
// DefaultSettings as a starting point.
type Settings struct {
	// UsePalette enables the palette path. When false, every non-null,
	// non-key frame is emitted as RawBitmap.
	UsePalette bool

	// ZstdCompressionLevel is passed straight through to the entropy
	// codec; it is a pure encode-time tuning knob and is never carried
	// in the bitstream.
	ZstdCompressionLevel int

	// ZstdWorkerCount bounds how many goroutines the entropy codec may
	// use internally. From the outside, Encoder.Encode still behaves
	// atomically regardless of this value.
	ZstdWorkerCount int
}

// DefaultSettings returns the documented defaults: palette path on,
// zstd level 18, single-threaded entropy coding.
func DefaultSettings() Settings {
	return Settings{
		UsePalette:           true,
		ZstdCompressionLevel: 18,
		ZstdWorkerCount:      1,
	}
}

// Validate collects every out-of-range field into a single
// *multierror.Error rather than stopping at the first problem, so a
// caller building Settings programmatically sees the whole picture in
// one report.
func (s Settings) Validate() error {
	var result *multierror.Error

	if s.ZstdCompressionLevel < 1 || s.ZstdCompressionLevel > 22 {
		result = multierror.Append(result, fmt.Errorf("lpvc: zstd_compression_level %d out of range [1, 22]", s.ZstdCompressionLevel))
	}
	if s.ZstdWorkerCount < 0 {
		result = multierror.Append(result, fmt.Errorf("lpvc: zstd_worker_count %d must be >= 0", s.ZstdWorkerCount))
	}

	return result.ErrorOrNil()
}
