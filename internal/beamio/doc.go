// Package beamio reads and writes particle trajectory records.
//
// A stream starts with a fixed header:
//
//	magic      [4]byte  "BLTR"
//	endianness int32    -1 little endian, 0 big endian
//	version    uint16
//	float      uint8    width of floating point values in bytes (8)
//
// followed by zero or more records. Each record is
//
//	magic      uint32
//	id         uint64
//	species    [16]byte  name, NUL padded
//	mass       float64   MeV/c^2
//	charge     float64   units of e
//	count      uint32    number of snapshots
//	lost       uint8
//	lossIndex  int32     -1 when not lost
//	reason     uint8
//
// then count snapshot blocks of six phase-space values, the path length, the
// element index (int32) and a 32 byte NUL padded location label, and finally
// the terminator 0xE0DE0F1E.
//
// The endianness flag reads the same in either byte order, so readers accept
// files of both. A clean end of stream between records is reported as
// [ErrEndOfStream]; anything shorter than a whole record is a [*FormatError].
package beamio
