package config

import (
	"sort"

	"github.com/san-kum/beamline/internal/beamline"
)

// Preset is a named built-in beamline.
type Preset struct {
	Description string
	Table       beamline.Table
}

func rows(element string, kv ...string) beamline.Table {
	t := make(beamline.Table, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, beamline.Row{Element: element, Parameter: kv[i], Value: kv[i+1]})
	}
	return t
}

func line(parts ...beamline.Table) beamline.Table {
	var t beamline.Table
	for _, p := range parts {
		t = append(t, p...)
	}
	return t
}

var source = rows("Source",
	"Name", "Source",
	"SigmaX", "0.001", "SigmaXp", "0.002",
	"SigmaY", "0.001", "SigmaYp", "0.002",
	"SigmaZ", "0.001", "SigmaDelta", "0.001",
)

var Presets = map[string]*Preset{
	"drift": {
		Description: "source and a 1 m drift",
		Table:       line(source, rows("Drift", "Name", "D1", "Length", "1")),
	},
	"aperture": {
		Description: "source and a 1 cm circular aperture",
		Table: line(source,
			rows("Drift", "Name", "D1", "Length", "0.5"),
			rows("Aperture", "Name", "Collimator", "Shape", "circular", "Radius", "0.01"),
		),
	},
	"fodo": {
		Description: "two FODO cells with a collimator",
		Table: line(source,
			rows("Drift", "Name", "D0", "Length", "0.3"),
			rows("FocusQuadrupole", "Name", "QF1", "Length", "0.1", "Gradient", "6"),
			rows("Drift", "Name", "D1", "Length", "0.5"),
			rows("DefocusQuadrupole", "Name", "QD1", "Length", "0.1", "Gradient", "6"),
			rows("Drift", "Name", "D2", "Length", "0.5"),
			rows("Aperture", "Name", "Collimator", "Shape", "elliptical", "RadiusX", "0.006", "RadiusY", "0.004"),
			rows("FocusQuadrupole", "Name", "QF2", "Length", "0.1", "Gradient", "6"),
			rows("Drift", "Name", "D3", "Length", "0.5"),
			rows("DefocusQuadrupole", "Name", "QD2", "Length", "0.1", "Gradient", "6"),
			rows("Drift", "Name", "D4", "Length", "0.3"),
			rows("Facility", "Name", "End"),
		),
	},
	"bend": {
		Description: "22.5 degree sector bend between quadrupole doublets",
		Table: line(source,
			rows("QuadDoublet", "Name", "Match1", "Length1", "0.1", "Gradient1", "5", "Gap", "0.1", "Length2", "0.1", "Gradient2", "-5"),
			rows("Drift", "Name", "D1", "Length", "0.4"),
			rows("SectorDipole", "Name", "B1", "Length", "1.0", "Angle", "0.3926990817"),
			rows("Drift", "Name", "D2", "Length", "0.4"),
			rows("Aperture", "Name", "Slit", "Shape", "rectangular", "HalfWidth", "0.01", "HalfHeight", "0.005"),
		),
	},
	"solenoid": {
		Description: "solenoid focusing channel",
		Table: line(source,
			rows("Drift", "Name", "D1", "Length", "0.2"),
			rows("Solenoid", "Name", "S1", "Length", "0.4", "Field", "1.5"),
			rows("Drift", "Name", "D2", "Length", "0.5"),
			rows("Solenoid", "Name", "S2", "Length", "0.4", "Field", "1.5"),
			rows("Drift", "Name", "D3", "Length", "0.2"),
		),
	},
	"gabor": {
		Description: "Gabor lens capture of a divergent beam",
		Table: line(source,
			rows("Drift", "Name", "D1", "Length", "0.1"),
			rows("GaborLens", "Name", "GL1", "Length", "0.3", "ElectronDensity", "1e15", "PlasmaRadius", "0.02"),
			rows("Drift", "Name", "D2", "Length", "0.5"),
			rows("Aperture", "Name", "Exit", "Radius", "0.01"),
		),
	},
	"rf": {
		Description: "bunching RF cavity followed by an octupole",
		Table: line(source,
			rows("Drift", "Name", "D1", "Length", "0.2"),
			rows("CylindricalRFCavity", "Name", "RF1", "Length", "0.1", "Gradient", "2", "Frequency", "200e6", "Phase", "-0.5"),
			rows("Drift", "Name", "D2", "Length", "0.3"),
			rows("Octupole", "Name", "O1", "Length", "0.1", "Strength", "500", "Bore", "0.02"),
			rows("Drift", "Name", "D3", "Length", "0.3"),
		),
	},
}

func GetPreset(name string) *Preset {
	return Presets[name]
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
