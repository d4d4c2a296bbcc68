package optim

import (
	"context"

	"github.com/san-kum/beamline/internal/beamline"
	"github.com/san-kum/beamline/internal/metrics"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/san-kum/beamline/internal/transport"
)

// Tracking returns an objective that builds each candidate line for ref and
// tracks n particles from its Source with a fixed seed, so every grid point
// sees the same initial beam.
func Tracking(ref *physics.Reference, n int, seed int64, workers int) Objective {
	return func(ctx context.Context, t beamline.Table) (map[string]float64, error) {
		bl, err := beamline.FromTable(ref, t)
		if err != nil {
			return nil, err
		}
		src, err := transport.SourceFor(bl, seed)
		if err != nil {
			return nil, err
		}

		tr := transport.New(bl)
		tr.Workers = workers
		for _, m := range metrics.Default() {
			tr.AddMetric(m)
		}
		res, err := tr.TrackEnsemble(ctx, n, src, nil, nil)
		if err != nil {
			return nil, err
		}
		return res.Metrics, nil
	}
}
