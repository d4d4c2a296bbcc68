// Package particle holds the per-particle tracking state and the ensemble
// that owns a run's particles.
//
// A [Particle] records one snapshot per interface it reaches: the phase-space
// vector, the element's location label and index, and the cumulative path
// length. The three are always index-aligned. Once a particle is marked lost
// nothing more is appended.
//
// An [Ensemble] replaces any process-wide particle list: each run creates
// its own, and [Ensemble.Reset] clears it between runs.
package particle
