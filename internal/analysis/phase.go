package analysis

import (
	"strings"

	"github.com/san-kum/beamline/internal/particle"
	"gonum.org/v1/gonum/floats"
)

// Portrait holds a 2D scatter of two phase-space components.
type Portrait struct {
	XIndex, YIndex int
	Xs, Ys         []float64
}

// PortraitAt collects components xIdx and yIdx of every snapshot taken at
// element index.
func PortraitAt(ps []*particle.Particle, index, xIdx, yIdx int) *Portrait {
	cols, _, _ := column(ps, index)
	return &Portrait{XIndex: xIdx, YIndex: yIdx, Xs: cols[xIdx], Ys: cols[yIdx]}
}

// PortraitToASCII renders the portrait on a width x height character grid
// with axes through zero when they are in range.
func PortraitToASCII(p *Portrait, width, height int) string {
	if p == nil || len(p.Xs) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := floats.Min(p.Xs), floats.Max(p.Xs)
	minY, maxY := floats.Min(p.Ys), floats.Max(p.Ys)

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i := range p.Xs {
		col := int((p.Xs[i] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Ys[i]-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
