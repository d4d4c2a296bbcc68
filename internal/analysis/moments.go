package analysis

import (
	"log/slog"
	"math"

	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Plane holds the second moments of one transverse plane.
type Plane struct {
	Mean      float64 // m
	MeanAngle float64 // rad
	RMS       float64 // m
	RMSAngle  float64 // rad
	Emittance float64 // m rad
	Max       float64 // largest |position|, m
}

// Moments of the beam at one element exit.
type Moments struct {
	Index     int
	Location  string
	Path      float64
	Count     int
	X, Y      Plane
	RMSZ      float64
	RMSDelta  float64
	MeanDelta float64
}

func (m Moments) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("index", m.Index),
		slog.String("location", m.Location),
		slog.Int("count", m.Count),
		slog.Float64("rms_x", m.X.RMS),
		slog.Float64("rms_y", m.Y.RMS),
		slog.Float64("eps_x", m.X.Emittance),
		slog.Float64("eps_y", m.Y.Emittance),
	)
}

// column gathers component k of the snapshots at element index.
func column(ps []*particle.Particle, index int) (cols [optics.Dim][]float64, loc string, path float64) {
	for _, p := range ps {
		for _, s := range p.Trajectory() {
			if s.Index != index {
				continue
			}
			for k := range cols {
				cols[k] = append(cols[k], s.State[k])
			}
			loc, path = s.Location, s.Path
			break
		}
	}
	return cols, loc, path
}

// MomentsAt computes the beam moments at element index. The second return
// is false when no particle reached it.
func MomentsAt(ps []*particle.Particle, index int) (Moments, bool) {
	cols, loc, path := column(ps, index)
	n := len(cols[optics.X])
	if n == 0 {
		return Moments{Index: index}, false
	}
	m := Moments{Index: index, Location: loc, Path: path, Count: n}
	m.X = plane(cols[optics.X], cols[optics.XP])
	m.Y = plane(cols[optics.Y], cols[optics.YP])
	m.RMSZ = rms(cols[optics.Z])
	m.MeanDelta, m.RMSDelta = meanRMS(cols[optics.Delta])
	return m, true
}

func plane(pos, ang []float64) Plane {
	var p Plane
	p.Mean, p.RMS = meanRMS(pos)
	p.MeanAngle, p.RMSAngle = meanRMS(ang)
	if len(pos) > 1 {
		cov := popCovariance(pos, ang)
		det := p.RMS*p.RMS*p.RMSAngle*p.RMSAngle - cov*cov
		p.Emittance = math.Sqrt(math.Max(det, 0))
	}
	abs := make([]float64, len(pos))
	for i, v := range pos {
		abs[i] = math.Abs(v)
	}
	p.Max = floats.Max(abs)
	return p
}

// meanRMS returns the mean and the population standard deviation.
func meanRMS(x []float64) (float64, float64) {
	if len(x) < 2 {
		return stat.Mean(x, nil), 0
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	return mean, std
}

func rms(x []float64) float64 {
	_, s := meanRMS(x)
	return s
}

// popCovariance rescales gonum's sample covariance to the population one so
// it is consistent with the rms sizes.
func popCovariance(x, y []float64) float64 {
	n := float64(len(x))
	return stat.Covariance(x, y, nil) * (n - 1) / n
}

// Envelope computes the moments at each of n elements, skipping elements no
// particle reached.
func Envelope(ps []*particle.Particle, n int) []Moments {
	out := make([]Moments, 0, n)
	for i := 0; i < n; i++ {
		if m, ok := MomentsAt(ps, i); ok {
			out = append(out, m)
		}
	}
	return out
}
