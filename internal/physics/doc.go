// Package physics provides the physical constants, particle species and the
// reference particle against which beamline coordinates are normalised.
//
//   - [Species]: mass and charge of a particle type
//   - [Reference]: nominal momentum, energy and rigidity of a run
//
// A [Reference] must be fully defined before any element transfer matrix
// that depends on the magnetic rigidity is computed:
//
//	ref, err := physics.NewReferenceFromKinetic(physics.Proton, 15.0)
//	brho := ref.Rigidity()
package physics
