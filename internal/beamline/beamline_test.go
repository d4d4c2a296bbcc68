package beamline

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/beamline/internal/elements"
	"github.com/san-kum/beamline/internal/optics"
	"github.com/san-kum/beamline/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proton(t *testing.T) *physics.Reference {
	t.Helper()
	ref, err := physics.NewReferenceFromKinetic(physics.Proton, 15)
	require.NoError(t, err)
	return ref
}

func build(t *testing.T, ref *physics.Reference, elems ...elements.Element) *BeamLine {
	t.Helper()
	bl := New(ref)
	for _, e := range elems {
		require.NoError(t, bl.Append(e))
	}
	require.NoError(t, bl.Build())
	return bl
}

func TestBuildLayout(t *testing.T) {
	ref := proton(t)
	bl := build(t, ref,
		elements.NewSource("S", optics.PhaseSpace{}),
		elements.NewDrift("D1", 1.5),
		elements.NewCircularAperture("A", 0.01),
		elements.NewQuadrupole("Q", 0.2, 5),
		elements.NewDrift("D2", 0.3),
	)

	assert.Equal(t, 5, bl.Len())
	assert.InDelta(t, 2.0, bl.TotalLength(), 1e-12)

	prev := -1.0
	for i := 0; i < bl.Len(); i++ {
		s, err := bl.Position(i)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
		assert.Equal(t, i, bl.At(i).Index())
	}

	assert.Len(t, ref.RrIn, 5)
	assert.Len(t, ref.RrOut, 5)
	assert.InDelta(t, 1.5, ref.RrOut[1][2], 1e-12)
	assert.Equal(t, ref.RrOut[1], ref.RrIn[2])

	e, ok := bl.Find("Q")
	require.True(t, ok)
	assert.Equal(t, 3, e.Index())
	assert.InDelta(t, 1.7, e.Placement().Origin[2], 1e-12)

	assert.NotNil(t, bl.Source())
	assert.Nil(t, bl.At(5))
}

func TestIndexAt(t *testing.T) {
	bl := build(t, proton(t),
		elements.NewSource("S", optics.PhaseSpace{}),
		elements.NewDrift("D1", 1),
		elements.NewDrift("D2", 2),
	)

	tests := []struct {
		s    float64
		want int
	}{
		{0, 0},
		{0.5, 1},
		{1, 1},
		{1.01, 2},
		{3, 2},
		{3.5, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bl.IndexAt(tt.s), "s=%g", tt.s)
	}
}

func TestSourceInvariants(t *testing.T) {
	bl := New(proton(t))
	err := bl.Append(elements.NewDrift("D", 1))
	var cfg *optics.ConfigurationError
	require.True(t, errors.As(err, &cfg))

	require.NoError(t, bl.Append(elements.NewSource("S", optics.PhaseSpace{})))
	err = bl.Append(elements.NewSource("S2", optics.PhaseSpace{}))
	require.True(t, errors.As(err, &cfg))
	assert.Equal(t, "S2", cfg.Element)

	require.NoError(t, bl.Build())
	assert.ErrorIs(t, bl.Append(elements.NewDrift("D", 1)), ErrBuilt)
	assert.ErrorIs(t, bl.Build(), ErrBuilt)

	assert.ErrorIs(t, New(nil).Build(), ErrEmpty)
}

func TestElementsIsACopy(t *testing.T) {
	bl := build(t, proton(t), elements.NewSource("S", optics.PhaseSpace{}), elements.NewDrift("D", 1))
	list := bl.Elements()
	list[1] = nil
	assert.NotNil(t, bl.At(1))
}

func TestSetReference(t *testing.T) {
	bl := build(t, proton(t), elements.NewSource("S", optics.PhaseSpace{}), elements.NewQuadrupole("Q", 0.2, 5))
	require.NoError(t, bl.Prepare())

	q := bl.At(1).(*elements.Quadrupole)
	before := q.Cached()

	hot, err := physics.NewReferenceFromKinetic(physics.Proton, 60)
	require.NoError(t, err)
	bl.SetReference(hot)
	require.NoError(t, bl.Prepare())

	assert.NotEqual(t, before, q.Cached())
	assert.Len(t, hot.RrOut, 2)
	assert.Same(t, hot, bl.Reference())
}

func TestPrepareWithoutRigidity(t *testing.T) {
	bl := build(t, nil, elements.NewSource("S", optics.PhaseSpace{}), elements.NewDrift("D", 1))
	err := bl.Prepare()
	assert.ErrorIs(t, err, optics.ErrRigidityUndefined)
}

const table = `Element,Parameter,Value,Comment
Source,SigmaX,0.001,
Source,SigmaY,0.001,
Drift,Name,D1,first drift
Drift,Length,0.5,
Drift,Length,0.25,repeat starts a second drift
Aperture,Shape,circular,
Aperture,Radius,0.01,
FocusQuadrupole,Length,0.1,
FocusQuadrupole,Gradient,10,
Drift,Name,D4,
Drift,Length,1,
Drift,Name,D5,
Drift,Length,0.1,
`

func TestFromTable(t *testing.T) {
	tbl, err := LoadTable(strings.NewReader(table))
	require.NoError(t, err)
	require.Len(t, tbl, 13)

	bl, err := FromTable(proton(t), tbl)
	require.NoError(t, err)

	var kinds []elements.Kind
	var names []string
	for _, e := range bl.Elements() {
		kinds = append(kinds, e.Kind())
		names = append(names, e.Name())
	}
	assert.Equal(t, []elements.Kind{
		elements.KindSource,
		elements.KindDrift,
		elements.KindDrift,
		elements.KindAperture,
		elements.KindFocusQuadrupole,
		elements.KindDrift,
		elements.KindDrift,
	}, kinds)
	assert.Equal(t, "D1", names[1])
	assert.Equal(t, "Drift2", names[2])
	assert.Equal(t, []string{"D4", "D5"}, names[5:])
	assert.InDelta(t, 1.95, bl.TotalLength(), 1e-12)

	src := bl.Source()
	require.NotNil(t, src)
	assert.Equal(t, 0.001, src.Sigma[optics.X])
}

func TestFromTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		rows    Table
		element string
		param   string
		row     int
	}{
		{
			name:    "unknown type",
			rows:    Table{{Element: "Source"}, {Element: "Wiggler", Parameter: "Length", Value: "1"}},
			element: "Wiggler",
			row:     2,
		},
		{
			name: "missing parameter",
			rows: Table{
				{Element: "Source"},
				{Element: "Drift", Parameter: "Name", Value: "D1"},
				{Element: "Drift", Parameter: "Roll", Value: "0"},
			},
			element: "D1",
			param:   "Length",
			row:     2,
		},
		{
			name: "bad value",
			rows: Table{
				{Element: "Source"},
				{Element: "FocusQuadrupole", Parameter: "Length", Value: "0.1"},
				{Element: "FocusQuadrupole", Parameter: "Gradient", Value: "ten"},
			},
			param: "Gradient",
			row:   3,
		},
		{
			name:    "source not first",
			rows:    Table{{Element: "Drift", Parameter: "Length", Value: "1"}},
			element: "Drift0",
			row:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromTable(proton(t), tt.rows)
			require.Error(t, err)
			var cfg *optics.ConfigurationError
			require.True(t, errors.As(err, &cfg), "got %T: %v", err, err)
			if tt.element != "" {
				assert.Equal(t, tt.element, cfg.Element)
			}
			assert.Equal(t, tt.param, cfg.Parameter)
			assert.Equal(t, tt.row, cfg.Row)
		})
	}
}

func TestWriteTableRoundTrip(t *testing.T) {
	in, err := LoadTable(strings.NewReader(table))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WriteTable(&buf, in))

	out, err := LoadTable(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDipoleLayout(t *testing.T) {
	bl := build(t, proton(t),
		elements.NewSource("S", optics.PhaseSpace{}),
		elements.NewSectorDipole("B", math.Pi/2, math.Pi/2),
		elements.NewDrift("D", 1),
	)
	d := bl.At(2)
	// After a 90 degree bend the drift runs along -x.
	assert.InDelta(t, -2.0, d.Placement().Origin[0], 1e-12)
	assert.InDelta(t, 1.0, d.Placement().Origin[2], 1e-12)
}

func TestTableWith(t *testing.T) {
	table := Table{
		{Element: "Source", Parameter: "Name", Value: "S"},
		{Element: "Drift", Parameter: "Name", Value: "D1"},
		{Element: "Drift", Parameter: "Length", Value: "1"},
		{Element: "Drift", Parameter: "Length", Value: "2"},
	}

	changed, err := table.With("D1", "length", "3")
	require.NoError(t, err)
	assert.Equal(t, "3", changed[2].Value)
	assert.Equal(t, "1", table[2].Value, "original table must not change")

	// The unnamed second drift gets its default name.
	changed, err = table.With("Drift2", "Roll", "0.1")
	require.NoError(t, err)
	require.Len(t, changed, 5)
	assert.Equal(t, Row{Element: "Drift", Parameter: "Roll", Value: "0.1"}, changed[4])

	bl, err := FromTable(proton(t), changed)
	require.NoError(t, err)
	assert.Equal(t, 3, bl.Len())

	_, err = table.With("Q9", "Gradient", "1")
	var cfg *optics.ConfigurationError
	assert.ErrorAs(t, err, &cfg)
}
