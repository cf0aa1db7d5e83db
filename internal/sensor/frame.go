package sensor

import (
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/smartcane/internal/fault"
)

// Ranging frame layout: [header][high][low][checksum].
const (
	FrameHeader = 0xFF
	FrameSize   = 4

	// DefaultMinRangeMM is the noise floor. Readings under it are discarded.
	DefaultMinRangeMM = 300
)

// Frame is one raw ranging frame.
type Frame [FrameSize]byte

var (
	ErrBadHeader  = fmt.Errorf("bad frame header: %w", fault.ErrCorrupt)
	ErrChecksum   = fmt.Errorf("frame checksum mismatch: %w", fault.ErrCorrupt)
	ErrBelowRange = fmt.Errorf("distance below minimum range: %w", fault.ErrCorrupt)

	// ErrTimeout is returned by FrameReader when the port had no data.
	ErrTimeout = errors.New("read timeout")
)

// Checksum returns the additive checksum of a frame payload.
func Checksum(hi, lo byte) byte {
	return byte((FrameHeader + int(hi) + int(lo)) & 0xFF)
}

// Encode builds a valid frame for a distance in millimeters.
func Encode(mm uint16) Frame {
	hi, lo := byte(mm>>8), byte(mm)
	return Frame{FrameHeader, hi, lo, Checksum(hi, lo)}
}

// Decode validates a frame and returns the distance in millimeters.
// Values strictly below minRangeMM are rejected.
func Decode(f Frame, minRangeMM int) (int, error) {
	if f[0] != FrameHeader {
		return 0, ErrBadHeader
	}
	if Checksum(f[1], f[2]) != f[3] {
		return 0, ErrChecksum
	}
	mm := int(f[1])<<8 | int(f[2])
	if mm < minRangeMM {
		return 0, ErrBelowRange
	}
	return mm, nil
}

// MillimetersToCM converts a decoded distance to centimeters.
func MillimetersToCM(mm int) float64 {
	return float64(mm) / 10
}

// FrameReader pulls header-aligned frames out of a byte stream.
type FrameReader struct {
	r   io.Reader
	buf [1]byte
}

// NewFrameReader wraps r. A Read that returns no bytes and no error is
// treated as a port read timeout.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Next skips bytes until a header, then reads the rest of the frame.
// It returns ErrTimeout if the port goes quiet, in which case any partial
// frame is dropped.
func (fr *FrameReader) Next() (Frame, error) {
	var f Frame
	for {
		b, err := fr.readByte()
		if err != nil {
			return f, err
		}
		if b == FrameHeader {
			break
		}
	}
	f[0] = FrameHeader
	for i := 1; i < FrameSize; i++ {
		b, err := fr.readByte()
		if err != nil {
			return f, err
		}
		f[i] = b
	}
	return f, nil
}

func (fr *FrameReader) readByte() (byte, error) {
	n, err := fr.r.Read(fr.buf[:])
	if n == 1 {
		return fr.buf[0], nil
	}
	if err != nil {
		return 0, err
	}
	return 0, ErrTimeout
}
