package physics

import (
	"fmt"
	"strings"
)

// Species describes a particle type. Mass is in MeV/c^2 and Charge in units
// of the elementary charge.
type Species struct {
	Name   string
	Mass   float64
	Charge float64
}

var (
	Proton   = Species{Name: "proton", Mass: ProtonMass, Charge: 1}
	Electron = Species{Name: "electron", Mass: ElectronMass, Charge: -1}
	Positron = Species{Name: "positron", Mass: ElectronMass, Charge: 1}
	Muon     = Species{Name: "muon", Mass: MuonMass, Charge: -1}
	Pion     = Species{Name: "pion", Mass: PionMass, Charge: 1}
	Alpha    = Species{Name: "alpha", Mass: AlphaMass, Charge: 2}
)

var knownSpecies = map[string]Species{
	"proton":   Proton,
	"p":        Proton,
	"electron": Electron,
	"e-":       Electron,
	"positron": Positron,
	"e+":       Positron,
	"muon":     Muon,
	"mu-":      Muon,
	"pion":     Pion,
	"pi+":      Pion,
	"alpha":    Alpha,
}

// LookupSpecies returns the built-in species with the given name.
func LookupSpecies(name string) (Species, error) {
	s, ok := knownSpecies[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Species{}, fmt.Errorf("unknown species: %q", name)
	}
	return s, nil
}

func (s Species) String() string { return s.Name }
