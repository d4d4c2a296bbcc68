package storage

import (
	"errors"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/beamline/internal/beamio"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
)

// TrajectoryRow is one snapshot in the flat CSV export.
type TrajectoryRow struct {
	ParticleID uint64  `csv:"particle_id"`
	Step       int     `csv:"step"`
	Index      int     `csv:"element_index"`
	Location   string  `csv:"location"`
	Path       float64 `csv:"path_m"`
	X          float64 `csv:"x"`
	XP         float64 `csv:"xp"`
	Y          float64 `csv:"y"`
	YP         float64 `csv:"yp"`
	Z          float64 `csv:"z"`
	Delta      float64 `csv:"delta"`
	Lost       bool    `csv:"lost"`
}

func trajectoryRows(p *particle.Particle) []TrajectoryRow {
	traj := p.Trajectory()
	rows := make([]TrajectoryRow, len(traj))
	for i, s := range traj {
		rows[i] = TrajectoryRow{
			ParticleID: p.ID,
			Step:       i,
			Index:      s.Index,
			Location:   s.Location,
			Path:       s.Path,
			X:          s.State[optics.X],
			XP:         s.State[optics.XP],
			Y:          s.State[optics.Y],
			YP:         s.State[optics.YP],
			Z:          s.State[optics.Z],
			Delta:      s.State[optics.Delta],
			Lost:       p.Lost() && i == len(traj)-1,
		}
	}
	return rows
}

// ExportCSV writes every record of r as TrajectoryRows, one particle at a
// time, and returns the number of particles exported.
func ExportCSV(w io.Writer, r *beamio.Reader) (int, error) {
	if err := gocsv.Marshal(&[]TrajectoryRow{}, w); err != nil {
		return 0, err
	}
	n := 0
	for {
		p, err := r.Read()
		if errors.Is(err, beamio.ErrEndOfStream) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		rows := trajectoryRows(p)
		if len(rows) > 0 {
			if err := gocsv.MarshalWithoutHeaders(&rows, w); err != nil {
				return n, err
			}
		}
		n++
	}
}
