package elements

import (
	"fmt"
	"strings"
)

// Kind identifies an element type.
type Kind int

const (
	KindSource Kind = iota
	KindDrift
	KindAperture
	KindSectorDipole
	KindFocusQuadrupole
	KindDefocusQuadrupole
	KindSolenoid
	KindRFCavity
	KindOctupole
	KindGaborLens
	KindQuadDoublet
	KindQuadTriplet
	KindFacility
)

var kindNames = map[Kind]string{
	KindSource:            "Source",
	KindDrift:             "Drift",
	KindAperture:          "Aperture",
	KindSectorDipole:      "SectorDipole",
	KindFocusQuadrupole:   "FocusQuadrupole",
	KindDefocusQuadrupole: "DefocusQuadrupole",
	KindSolenoid:          "Solenoid",
	KindRFCavity:          "CylindricalRFCavity",
	KindOctupole:          "Octupole",
	KindGaborLens:         "GaborLens",
	KindQuadDoublet:       "QuadDoublet",
	KindQuadTriplet:       "QuadTriplet",
	KindFacility:          "Facility",
}

var kindAliases = map[string]Kind{
	"rfcavity": KindRFCavity,
	"fquad":    KindFocusQuadrupole,
	"dquad":    KindDefocusQuadrupole,
	"dipole":   KindSectorDipole,
	"marker":   KindFacility,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the canonical element type names, case-insensitively,
// and a few short aliases.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if strings.ToLower(name) == key {
			return k, nil
		}
	}
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown element type: %q", s)
}

// Kinds lists every element type in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindSource; k <= KindFacility; k++ {
		out = append(out, k)
	}
	return out
}
