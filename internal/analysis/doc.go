// Package analysis computes beam statistics from tracked particles.
//
//   - [MomentsAt]: mean, rms size and rms emittance per plane at one element
//   - [Envelope]: moments at every element of a line
//   - [PortraitAt]: a 2D phase-space scatter at one element
//   - [PortraitToASCII]: terminal rendering of a portrait
//
// # Emittance
//
// The rms emittance of a plane is the square root of the determinant of its
// 2x2 covariance matrix:
//
//	eps_x = sqrt(<x^2><x'^2> - <x x'>^2)
//
// Only particles that have a snapshot at the requested element contribute,
// so a lost particle drops out of every element from its loss onwards.
package analysis
