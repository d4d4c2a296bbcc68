package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/beamline/internal/analysis"
)

const (
	plotHeight = 12
	plotWidth  = 80
	barWidth   = 30
)

// EnvelopePlot draws the rms beam size in x and y (mm) against element
// index.
func EnvelopePlot(env []analysis.Moments) string {
	if len(env) == 0 {
		return "no envelope data"
	}
	xs := make([]float64, len(env))
	ys := make([]float64, len(env))
	for i, m := range env {
		xs[i] = m.X.RMS * 1e3
		ys[i] = m.Y.RMS * 1e3
	}
	return asciigraph.PlotMany([][]float64{xs, ys},
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
		asciigraph.Caption("rms size x (cyan) / y (magenta) [mm] vs element"),
	)
}

// SurvivalPlot draws the number of particles reaching each element.
func SurvivalPlot(env []analysis.Moments) string {
	if len(env) == 0 {
		return "no envelope data"
	}
	counts := make([]float64, len(env))
	for i, m := range env {
		counts[i] = float64(m.Count)
	}
	return asciigraph.Plot(counts,
		asciigraph.Height(plotHeight/2),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("particles vs element"),
	)
}

// LossTable renders one bar per element that lost particles, as a share of
// total.
func LossTable(byElement map[string]int, total int) string {
	if len(byElement) == 0 {
		return Subtle.Render("no losses")
	}
	names := make([]string, 0, len(byElement))
	width := 0
	for name := range byElement {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Slice(names, func(i, j int) bool {
		if byElement[names[i]] != byElement[names[j]] {
			return byElement[names[i]] > byElement[names[j]]
		}
		return names[i] < names[j]
	})

	var b strings.Builder
	for _, name := range names {
		n := byElement[name]
		frac := 0.0
		if total > 0 {
			frac = float64(n) / float64(total)
		}
		fmt.Fprintf(&b, "%-*s %s %d\n", width, name, Bar(frac, barWidth), n)
	}
	return strings.TrimRight(b.String(), "\n")
}
