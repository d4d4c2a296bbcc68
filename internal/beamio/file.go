package beamio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compressed reports whether path selects zstd compression.
func Compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}

// FileWriter is a Writer on a file it owns.
type FileWriter struct {
	*Writer
	closers []io.Closer
}

// Create creates path and returns a writer on it. Paths ending in ".zst"
// are zstd compressed.
func Create(path string, order binary.ByteOrder) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trajectory file: %w", err)
	}
	fw := &FileWriter{}
	var w io.Writer = f
	if Compressed(path) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		fw.closers = append(fw.closers, enc)
		w = enc
	}
	fw.closers = append(fw.closers, f)
	fw.Writer = NewWriter(w, order)
	return fw, nil
}

// Close flushes the stream and closes the compressor and file.
func (fw *FileWriter) Close() error {
	err := fw.Writer.Close()
	for _, c := range fw.closers {
		err = errors.Join(err, c.Close())
	}
	return err
}

// FileReader is a Reader on a file it owns.
type FileReader struct {
	*Reader
	close func() error
}

// Open opens a trajectory file written by Create.
func Open(path string) (*FileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory file: %w", err)
	}
	var r io.Reader = f
	closeFn := f.Close
	if Compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		r = dec
		closeFn = func() error {
			dec.Close()
			return f.Close()
		}
	}

	rd, err := NewReader(r)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &FileReader{Reader: rd, close: closeFn}, nil
}

func (fr *FileReader) Close() error {
	return fr.close()
}
