package beamio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
)

// Encode writes one record for p.
func Encode(w io.Writer, order binary.ByteOrder, p *particle.Particle) error {
	buf, err := appendRecord(nil, order, p)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

func appendRecord(buf []byte, order binary.ByteOrder, p *particle.Particle) ([]byte, error) {
	traj := p.Trajectory()
	if len(traj) > maxSnapshots {
		return nil, fmt.Errorf("beamio: particle %d has %d snapshots, limit %d", p.ID, len(traj), maxSnapshots)
	}

	var hdr [recordHeaderSize]byte
	order.PutUint32(hdr[0:], recordMagic)
	order.PutUint64(hdr[4:], p.ID)
	if err := putLabel(hdr[12:12+speciesWidth], p.Species.Name); err != nil {
		return nil, err
	}
	off := 12 + speciesWidth
	order.PutUint64(hdr[off:], math.Float64bits(p.Species.Mass))
	order.PutUint64(hdr[off+8:], math.Float64bits(p.Species.Charge))
	order.PutUint32(hdr[off+16:], uint32(len(traj)))
	if p.Lost() {
		hdr[off+20] = 1
	}
	order.PutUint32(hdr[off+21:], uint32(int32(p.LossIndex())))
	hdr[off+25] = uint8(p.LossReason())
	buf = append(buf, hdr[:]...)

	var blk [snapshotSize]byte
	for _, s := range traj {
		for i, v := range s.State {
			order.PutUint64(blk[i*floatWidth:], math.Float64bits(v))
		}
		order.PutUint64(blk[6*floatWidth:], math.Float64bits(s.Path))
		order.PutUint32(blk[7*floatWidth:], uint32(int32(s.Index)))
		if err := putLabel(blk[7*floatWidth+4:], s.Location); err != nil {
			return nil, err
		}
		buf = append(buf, blk[:]...)
	}
	var term [4]byte
	order.PutUint32(term[:], terminator)
	return append(buf, term[:]...), nil
}

// Decode reads one record. It returns ErrEndOfStream if r is exhausted
// before the first byte of the record and a *FormatError for any partial
// or malformed record.
func Decode(r io.Reader, order binary.ByteOrder) (*particle.Particle, error) {
	d := decoder{r: r, order: order}
	return d.record()
}

type decoder struct {
	r      io.Reader
	order  binary.ByteOrder
	offset int64
}

func (d *decoder) fail(reason string, err error) *FormatError {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &FormatError{Offset: d.offset, Reason: reason, Err: err}
}

func (d *decoder) read(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	d.offset += int64(n)
	return err
}

func (d *decoder) record() (*particle.Particle, error) {
	start := d.offset
	var hdr [recordHeaderSize]byte
	if err := d.read(hdr[:]); err != nil {
		if err == io.EOF {
			return nil, ErrEndOfStream
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, d.fail("truncated record header", err)
		}
		return nil, err
	}

	o := d.order
	if m := o.Uint32(hdr[0:]); m != recordMagic {
		return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("bad record magic %#08x", m)}
	}
	id := o.Uint64(hdr[4:])
	off := 12 + speciesWidth
	species := physics.Species{
		Name:   label(hdr[12:off]),
		Mass:   math.Float64frombits(o.Uint64(hdr[off:])),
		Charge: math.Float64frombits(o.Uint64(hdr[off+8:])),
	}
	count := o.Uint32(hdr[off+16:])
	lostFlag := hdr[off+20]
	lossIndex := int(int32(o.Uint32(hdr[off+21:])))
	reason := optics.LossReason(hdr[off+25])

	if count > maxSnapshots {
		return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("snapshot count %d exceeds limit", count)}
	}
	if lostFlag > 1 {
		return nil, &FormatError{Offset: start, Reason: fmt.Sprintf("bad lost flag %d", lostFlag)}
	}

	// The count is untrusted until the blocks are read, so capacity grows
	// with the data actually present.
	traj := make([]particle.Snapshot, 0, min(count, snapshotPrealloc))
	var blk [snapshotSize]byte
	for i := 0; i < int(count); i++ {
		if err := d.read(blk[:]); err != nil {
			return nil, d.fail(fmt.Sprintf("truncated snapshot %d of %d", i, count), err)
		}
		traj = append(traj, particle.Snapshot{})
		s := &traj[i]
		for k := range s.State {
			s.State[k] = math.Float64frombits(o.Uint64(blk[k*floatWidth:]))
		}
		s.Path = math.Float64frombits(o.Uint64(blk[6*floatWidth:]))
		s.Index = int(int32(o.Uint32(blk[7*floatWidth:])))
		s.Location = label(blk[7*floatWidth+4:])
	}

	var term [4]byte
	if err := d.read(term[:]); err != nil {
		return nil, d.fail("missing terminator", err)
	}
	if t := o.Uint32(term[:]); t != terminator {
		return nil, &FormatError{Offset: d.offset - 4, Reason: fmt.Sprintf("bad terminator %#08x", t)}
	}

	return particle.Restore(id, species, traj, lostFlag == 1, lossIndex, reason), nil
}
