package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/beamline/internal/analysis"
)

func TestEnvelopePlotEmpty(t *testing.T) {
	if got := EnvelopePlot(nil); got != "no envelope data" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestEnvelopePlot(t *testing.T) {
	env := []analysis.Moments{
		{Index: 0, Count: 10, X: analysis.Plane{RMS: 0.001}, Y: analysis.Plane{RMS: 0.002}},
		{Index: 1, Count: 9, X: analysis.Plane{RMS: 0.002}, Y: analysis.Plane{RMS: 0.001}},
		{Index: 2, Count: 8, X: analysis.Plane{RMS: 0.003}, Y: analysis.Plane{RMS: 0.001}},
	}
	out := EnvelopePlot(env)
	if !strings.Contains(out, "rms size") {
		t.Error("expected caption in plot")
	}
	if !strings.Contains(SurvivalPlot(env), "particles vs element") {
		t.Error("expected caption in survival plot")
	}
}

func TestLossTableOrder(t *testing.T) {
	out := LossTable(map[string]int{"A1": 2, "Q2": 5, "B": 2}, 10)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"Q2", "A1", "B "} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d: expected prefix %q, got %q", i, want, lines[i])
		}
	}
	if !strings.HasSuffix(lines[0], " 5") {
		t.Errorf("expected count at end of line, got %q", lines[0])
	}
}

func TestBarBounds(t *testing.T) {
	for _, f := range []float64{-1, 0, 0.5, 1, 2} {
		if got := strings.Count(Bar(f, 10), "█") + strings.Count(Bar(f, 10), "░"); got != 10 {
			t.Errorf("fraction %v: expected 10 cells, got %d", f, got)
		}
	}
}
