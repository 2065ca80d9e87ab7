// Package hostproto implements the length-prefixed framing used between a
// browser extension and its native messaging host: a 4-byte little-endian
// payload length followed by a JSON payload.
package hostproto

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxFrameSize is the largest payload accepted or produced. Browsers cap
// extension-bound native messages at 1 MiB.
const MaxFrameSize = 1 << 20

var (
	// ErrFrameTooLarge is returned when a frame header announces a payload
	// over MaxFrameSize. The stream is unrecoverable after this error.
	ErrFrameTooLarge = errors.New("hostproto: frame exceeds maximum size")

	// ErrZeroLengthFrame is returned for a frame with an empty payload
	ErrZeroLengthFrame = errors.New("hostproto: zero-length frame")
)

// Reader decodes frames from a byte stream.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for frame decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadFrame reads the next frame and unmarshals its payload into v. A clean
// end of stream on a frame boundary returns io.EOF; a stream ending inside
// a frame returns io.ErrUnexpectedEOF. After ErrFrameTooLarge the oversized
// payload is left unread and the reader must be discarded.
func (r *Reader) ReadFrame(v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("read frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header[:])
	if length == 0 {
		return ErrZeroLengthFrame
	}
	if length > MaxFrameSize {
		return ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read frame payload: %w", err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode frame payload: %w", err)
	}
	return nil
}

// Writer encodes frames onto a byte stream. Writes are serialized, so one
// Writer may be shared across goroutines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w for frame encoding.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame marshals v and writes it as a single frame. Header and payload
// go out in one Write call so concurrent frames never interleave.
func (w *Writer) WriteFrame(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame payload: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
