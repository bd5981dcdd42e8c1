// Package entropy adapts a streaming zstd session to the codec's
// length-prefixed block framing: compress_into reserves a
// 32-bit slot, streams the payload through the compressor in flush mode,
// and patches the slot with the resulting length; decompress_into is the
// mirror image. The compressor/decompressor session is stateful across
// calls within one encoder/decoder lifetime (so later blocks benefit
// from earlier blocks' history) and is only recreated by Reset, which
// the KeyFrame block triggers.
package entropy

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/xaionaro-go/bytesextra"

	"github.com/coastalbyte/lpvc/internal/bitio"
)

// Settings configures the underlying zstd session. It is a pure
// parameter block; nothing here is carried in the bitstream.
type Settings struct {
	Level       int
	WorkerCount int
}

// Codec owns a persistent streaming zstd encoder/decoder pair. Both
// sides read and write through the same kind of backing object
// (bytesextra.ReadWriteSeeker over a plain growable []byte): the
// encoder's compressed output accumulates there so the delta since the
// previous Flush can be sliced off, and the decoder's compressed input
// accumulates there so the streaming zstd.Reader can be fed exactly the
// bytes each block contributes without losing its place between calls.
type Codec struct {
	settings Settings

	encBuf    []byte
	encStream *bytesextra.ReadWriteSeeker
	enc       *zstd.Encoder
	encLen    int // encStream length as of the end of the previous CompressInto

	decBuf    []byte
	decStream *bytesextra.ReadWriteSeeker
	dec       *zstd.Decoder
}

// New opens a Codec with the given settings. The session is created
// once and reused (and reset, on KeyFrame) for the lifetime of the
// owning Encoder/Decoder.
func New(settings Settings) (*Codec, error) {
	if settings.WorkerCount < 1 {
		settings.WorkerCount = 1
	}
	c := &Codec{settings: settings}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Codec) open() error {
	c.encBuf = make([]byte, 0, 4096)
	c.encStream = bytesextra.NewReadWriteSeeker(c.encBuf)
	c.encLen = 0

	enc, err := zstd.NewWriter(
		c.encStream,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(c.settings.Level)),
		zstd.WithEncoderConcurrency(c.settings.WorkerCount),
	)
	if err != nil {
		return fmt.Errorf("entropy: open encoder: %w", err)
	}
	c.enc = enc

	c.decBuf = make([]byte, 0, 4096)
	c.decStream = bytesextra.NewReadWriteSeeker(c.decBuf)

	dec, err := zstd.NewReader(c.decStream, zstd.WithDecoderConcurrency(c.settings.WorkerCount))
	if err != nil {
		enc.Close()
		return fmt.Errorf("entropy: open decoder: %w", err)
	}
	c.dec = dec

	return nil
}

// Reset recreates both the compressor and decompressor sessions,
// discarding any dictionary/history state. Configured parameters
// (level, worker count) are preserved.
func (c *Codec) Reset() error {
	c.enc.Close()
	c.dec.Close()
	return c.open()
}

// Close releases the underlying zstd sessions.
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}

// CompressInto reserves a 32-bit length placeholder at w's current
// offset, streams src through the compressor in flush mode, and patches
// the placeholder with the number of compressed bytes produced. A
// zero-byte compressed payload is legal.
func (c *Codec) CompressInto(w *bitio.Writer, src []byte) error {
	offset, err := w.ReserveUint32()
	if err != nil {
		return err
	}

	if _, err := c.enc.Write(src); err != nil {
		return fmt.Errorf("entropy: compress: %w", err)
	}
	if err := c.enc.Flush(); err != nil {
		return fmt.Errorf("entropy: flush: %w", err)
	}

	chunk := c.encBuf[c.encLen:]
	if err := w.PutBytes(chunk); err != nil {
		return err
	}
	if err := w.PatchUint32(offset, uint32(len(chunk))); err != nil {
		return err
	}
	c.encLen = len(c.encBuf)
	return nil
}

// DecompressInto reads a 32-bit length L from r, decompresses exactly L
// compressed bytes, and advances r past them. dst is a scratch buffer
// that need not be sized exactly to the block's real decompressed
// length (callers generally pass a shared buffer sized to the largest
// block any kind can produce); DecompressInto stops as soon as this
// block's flushed chunk is drained and returns the number of bytes
// actually produced, which may be less than len(dst).
func (c *Codec) DecompressInto(r *bitio.Reader, dst []byte) (int, error) {
	length, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	compressed, err := r.Bytes(int(length))
	if err != nil {
		return 0, err
	}
	if length == 0 || len(dst) == 0 {
		return 0, nil
	}

	// The zstd.Reader's own read cursor into decStream is wherever it
	// last stopped consuming compressed bytes; save it, append this
	// block's chunk at the end of the buffer, then restore it so the
	// decoder resumes exactly where it left off.
	readPos, err := c.decStream.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("entropy: decompress: %w", err)
	}
	if _, err := c.decStream.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("entropy: decompress: %w", err)
	}
	if _, err := c.decStream.Write(compressed); err != nil {
		return 0, fmt.Errorf("entropy: decompress: %w", err)
	}
	if _, err := c.decStream.Seek(readPos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("entropy: decompress: %w", err)
	}

	// Read until this block's flushed chunk is drained. The streaming
	// decoder reports that point as io.EOF (the flush marker is the
	// only synchronization signal it has), which is the expected,
	// successful end of a block's payload here, not a truncation —
	// unlike io.ReadFull, a short read is the normal case since dst is
	// usually a shared scratch buffer larger than this block's payload.
	total := 0
	for total < len(dst) {
		n, err := c.dec.Read(dst[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("entropy: decompress: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
