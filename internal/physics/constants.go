package physics

const (
	// SpeedOfLight in m/s.
	SpeedOfLight = 299792458.0
	// ElementaryCharge in C.
	ElementaryCharge = 1.602176634e-19
	// VacuumPermittivity in F/m.
	VacuumPermittivity = 8.8541878128e-12
	// ElectronMass in MeV/c^2.
	ElectronMass = 0.51099895000
	// ProtonMass in MeV/c^2.
	ProtonMass = 938.27208816
	// MuonMass in MeV/c^2.
	MuonMass = 105.6583755
	// PionMass in MeV/c^2 (charged).
	PionMass = 139.57039
	// AlphaMass in MeV/c^2.
	AlphaMass = 3727.3794066

	// MeVToJoule converts an energy in MeV to J.
	MeVToJoule = 1.0e6 * ElementaryCharge

	// rigidityFactor converts p [MeV/c] / q [e] to Brho [T m].
	rigidityFactor = SpeedOfLight / 1.0e6
)
