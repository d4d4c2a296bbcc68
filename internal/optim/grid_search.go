package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/beamline/internal/beamline"
	"gonum.org/v1/gonum/floats"
)

// Param is one scanned table entry, addressed as Element.Parameter.
type Param struct {
	Element   string
	Parameter string
	Values    []float64
}

func (p Param) Key() string { return p.Element + "." + p.Parameter }

// ParseParam reads "Element.Parameter=from:to:n" (n evenly spaced values)
// or "Element.Parameter=v1,v2,...".
func ParseParam(s string) (Param, error) {
	key, rng, ok := strings.Cut(s, "=")
	if !ok {
		return Param{}, fmt.Errorf("scan %q: expected Element.Parameter=range", s)
	}
	el, param, ok := strings.Cut(key, ".")
	if !ok || el == "" || param == "" {
		return Param{}, fmt.Errorf("scan %q: expected Element.Parameter", s)
	}
	p := Param{Element: el, Parameter: param}

	if parts := strings.Split(rng, ":"); len(parts) == 3 {
		from, err1 := strconv.ParseFloat(parts[0], 64)
		to, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err := errors.Join(err1, err2, err3); err != nil {
			return Param{}, fmt.Errorf("scan %q: %w", s, err)
		}
		if n < 1 {
			return Param{}, fmt.Errorf("scan %q: need at least one point", s)
		}
		if n == 1 {
			p.Values = []float64{from}
		} else {
			p.Values = floats.Span(make([]float64, n), from, to)
		}
		return p, nil
	}

	for _, f := range strings.Split(rng, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Param{}, fmt.Errorf("scan %q: %w", s, err)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

// Objective evaluates one candidate table and returns its metrics.
type Objective func(ctx context.Context, t beamline.Table) (map[string]float64, error)

// Point is one evaluated grid point.
type Point struct {
	Values map[string]float64
	Metric float64
	Err    error
}

type Result struct {
	Best   Point
	Trials []Point
}

// GridSearch evaluates every combination of the scanned parameters on top
// of a base table.
type GridSearch struct {
	base     beamline.Table
	params   []Param
	Maximize bool
	logger   *slog.Logger
}

func NewGridSearch(base beamline.Table, params []Param) *GridSearch {
	return &GridSearch{base: base, params: params, logger: slog.Default()}
}

// Search runs objective on every grid point and keeps the best value of
// metricName. Points whose table is invalid or whose evaluation fails are
// recorded with their error and skipped.
func (g *GridSearch) Search(ctx context.Context, objective Objective, metricName string) (*Result, error) {
	res := &Result{Best: Point{Metric: math.NaN()}}
	if err := g.searchRecursive(ctx, 0, g.base, map[string]float64{}, objective, metricName, res); err != nil {
		return res, err
	}
	if res.Best.Values == nil {
		return res, fmt.Errorf("no grid point produced metric %q", metricName)
	}
	return res, nil
}

func (g *GridSearch) better(v, best float64) bool {
	if math.IsNaN(best) {
		return true
	}
	if g.Maximize {
		return v > best
	}
	return v < best
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	table beamline.Table,
	current map[string]float64,
	objective Objective,
	metricName string,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.params) {
		pt := Point{Values: current, Metric: math.NaN()}
		metrics, err := objective(ctx, table)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			pt.Err = err
		default:
			v, ok := metrics[metricName]
			if !ok {
				pt.Err = fmt.Errorf("metric %q not reported", metricName)
			} else {
				pt.Metric = v
			}
		}
		if pt.Err != nil {
			g.logger.Debug("grid point failed", "point", current, "err", pt.Err)
		} else if g.better(pt.Metric, res.Best.Metric) {
			res.Best = pt
		}
		res.Trials = append(res.Trials, pt)
		return nil
	}

	p := g.params[depth]
	for _, val := range p.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[p.Key()] = val

		t, err := table.With(p.Element, p.Parameter, strconv.FormatFloat(val, 'g', -1, 64))
		if err != nil {
			return err
		}
		if err := g.searchRecursive(ctx, depth+1, t, next, objective, metricName, res); err != nil {
			return err
		}
	}
	return nil
}
