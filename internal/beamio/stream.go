package beamio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/beamline/internal/particle"
)

// Writer writes a record stream. The stream header is written before the
// first record, or on Close for an empty stream. A Writer must not be
// shared between goroutines.
type Writer struct {
	w       *bufio.Writer
	order   binary.ByteOrder
	started bool
	buf     []byte
	count   int
}

func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	if order == nil {
		order, _ = orderFor(DefaultEndiannessFlag)
	}
	return &Writer{w: bufio.NewWriter(w), order: order}
}

func (w *Writer) header() error {
	if w.started {
		return nil
	}
	var hdr [streamHeaderSize]byte
	copy(hdr[:4], streamMagic[:])
	w.order.PutUint32(hdr[4:], uint32(endiannessFlag(w.order)))
	w.order.PutUint16(hdr[8:], Version)
	hdr[10] = floatWidth
	if _, err := w.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write stream header: %w", err)
	}
	w.started = true
	return nil
}

// Write appends the record of p.
func (w *Writer) Write(p *particle.Particle) error {
	if err := w.header(); err != nil {
		return err
	}
	var err error
	w.buf, err = appendRecord(w.buf[:0], w.order, p)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("write particle %d: %w", p.ID, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int { return w.count }

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.header(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.Flush()
}

// Reader reads a record stream written by Writer.
type Reader struct {
	dec     decoder
	version uint16
	done    error
}

// NewReader reads and checks the stream header.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	var hdr [streamHeaderSize]byte
	n, err := io.ReadFull(br, hdr[:])
	if err != nil {
		if err == io.EOF {
			return nil, &FormatError{Reason: "empty stream", Err: io.ErrUnexpectedEOF}
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FormatError{Offset: int64(n), Reason: "truncated stream header", Err: err}
		}
		return nil, err
	}

	if [4]byte(hdr[:4]) != streamMagic {
		return nil, &FormatError{Reason: fmt.Sprintf("bad stream magic %q", hdr[:4])}
	}
	order, ok := orderFor(int32(binary.LittleEndian.Uint32(hdr[4:])))
	if !ok {
		return nil, &FormatError{Offset: 4, Reason: "bad endianness flag"}
	}
	version := order.Uint16(hdr[8:])
	if version != Version {
		return nil, &FormatError{Offset: 8, Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	if hdr[10] != floatWidth {
		return nil, &FormatError{Offset: 10, Reason: fmt.Sprintf("unsupported float width %d", hdr[10])}
	}

	return &Reader{dec: decoder{r: br, order: order, offset: streamHeaderSize}, version: version}, nil
}

// ByteOrder of the stream.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.dec.order }

// Read returns the next particle, ErrEndOfStream after the last one, or a
// *FormatError. Once an error is returned every later call returns it too.
func (r *Reader) Read() (*particle.Particle, error) {
	if r.done != nil {
		return nil, r.done
	}
	p, err := r.dec.record()
	if err != nil {
		r.done = err
		return nil, err
	}
	return p, nil
}

// ReadAll reads the remaining records.
func (r *Reader) ReadAll() ([]*particle.Particle, error) {
	var out []*particle.Particle
	for {
		p, err := r.Read()
		if errors.Is(err, ErrEndOfStream) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
}
