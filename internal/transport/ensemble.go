package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/particle"
	"github.com/san-kum/beamline/internal/physics"
)

// batchPerWorker bounds how many particles are in flight per worker before
// results are handed to the sink.
const batchPerWorker = 64

// TrackEnsemble samples n particles, tracks each through the line and hands
// them to sink in id order. Particles are added to ens when it is non-nil.
// The context is checked between batches and between particles. On
// cancellation the particles already delivered stay delivered, the
// interrupted batch is discarded and ctx.Err() is returned; res.Stats
// and ens cover delivered particles only.
func (t *Tracker) TrackEnsemble(ctx context.Context, n int, sampler Sampler, ens *particle.Ensemble, sink Sink) (*Result, error) {
	if n < 0 {
		return nil, fmt.Errorf("particle count must not be negative, got %d", n)
	}
	if ens == nil {
		ens = particle.NewEnsemble()
	}
	for _, m := range t.metrics {
		m.Reset()
	}

	workers := t.Workers
	if workers < 1 {
		workers = 1
	}

	res := &Result{Metrics: make(map[string]float64)}
	var delivered []*particle.Particle
	err := t.line.View(func(ref *physics.Reference, elems []elements.Element) error {
		batch := workers * batchPerWorker
		if workers == 1 {
			batch = 1
		}
		for done := 0; done < n; {
			if err := ctx.Err(); err != nil {
				return err
			}
			size := min(batch, n-done)

			// Sampling stays on this goroutine so a seeded run draws the
			// same initial states whatever the worker count. Particles join
			// ens only once delivered, so a cancelled batch leaves no trace.
			first := ens.Reserve(size)
			ps := make([]*particle.Particle, size)
			initial := make([]optics.PhaseSpace, size)
			for i := range ps {
				ps[i] = particle.New(first+uint64(i), ref.Species)
				initial[i] = sampler.Sample()
			}

			if err := t.parallelFor(ctx, size, workers, func(i int) error {
				return t.run(ref, elems, ps[i], initial[i])
			}); err != nil {
				return err
			}

			for _, p := range ps {
				for _, m := range t.metrics {
					m.Observe(p)
				}
				if sink != nil {
					if err := sink(p); err != nil {
						return fmt.Errorf("sink particle %d: %w", p.ID, err)
					}
				}
				ens.Add(p)
				delivered = append(delivered, p)
				res.Tracked++
			}
			done += size
		}
		return nil
	})

	res.Stats = particle.StatsOf(delivered)
	for _, m := range t.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	t.logger.Info("ensemble tracked", "tracked", res.Tracked, "losses", res.Stats)
	return res, err
}

// parallelFor runs fn for 0..n-1 on up to workers goroutines and returns
// the first error.
func (t *Tracker) parallelFor(ctx context.Context, n, workers int, fn func(int) error) error {
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, n)
	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				errs[i] = fn(i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case next <- i:
		}
	}
	close(next)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
