// Package optics provides the core primitives shared by beamline elements and
// the tracking engine.
//
// The package defines:
//
//   - [PhaseSpace]: six-component particle state (x, x', y, y', z, delta)
//   - [Placement]: an element's position and orientation in the lab frame
//   - [LabCoordinates]: a phase-space point expressed in the lab frame
//   - [LossReason]: why a particle stopped being tracked
//   - the error taxonomy ([ConfigurationError], [ComputationError],
//     [ExpansionError], [ErrRigidityUndefined])
//
// Transfer matrices are 6x6 gonum dense matrices acting on column vectors:
//
//	m := optics.Identity()
//	out := optics.MulVec(m, in)
//
// # Frames
//
// Element-local coordinates are in the reference-particle-local-coordinate
// (RPLC) frame at the element exit. [Placement.ToLab] rotates then
// translates; [Placement.ToLocal] undoes the translation and then the
// rotation, so the two are exact inverses up to rounding.
package optics
