package beamio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Version is the current format version. Files of other versions are
	// rejected.
	Version uint16 = 1

	floatWidth = 8

	recordMagic uint32 = 0x4A415254
	terminator  uint32 = 0xE0DE0F1E

	speciesWidth  = 16
	locationWidth = 32

	streamHeaderSize = 4 + 4 + 2 + 1
	recordHeaderSize = 4 + 8 + speciesWidth + 8 + 8 + 4 + 1 + 4 + 1
	snapshotSize     = 7*floatWidth + 4 + locationWidth

	// maxSnapshots is the largest snapshot count a record header may claim.
	maxSnapshots = 1 << 24

	// snapshotPrealloc caps the capacity reserved from a record header.
	snapshotPrealloc = 4096
)

// DefaultEndiannessFlag selects little endian output.
const DefaultEndiannessFlag int32 = -1

var streamMagic = [4]byte{'B', 'L', 'T', 'R'}

var (
	// ErrEndOfStream is returned by Reader.Read when no further record
	// starts in the stream.
	ErrEndOfStream = errors.New("beamio: end of stream")

	// ErrLabelTooLong is returned when a species name or location label
	// does not fit its fixed-width field.
	ErrLabelTooLong = errors.New("beamio: label too long")
)

// FormatError reports truncated or malformed data. The read session cannot
// continue after one.
type FormatError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("beamio: format error at byte %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("beamio: format error at byte %d: %s", e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func endiannessFlag(order binary.ByteOrder) int32 {
	if order == binary.BigEndian {
		return 0
	}
	return -1
}

func orderFor(flag int32) (binary.ByteOrder, bool) {
	switch flag {
	case -1:
		return binary.LittleEndian, true
	case 0:
		return binary.BigEndian, true
	}
	return nil, false
}

func putLabel(dst []byte, s string) error {
	if len(s) > len(dst) {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrLabelTooLong, s, len(dst))
	}
	n := copy(dst, s)
	clear(dst[n:])
	return nil
}

func label(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
