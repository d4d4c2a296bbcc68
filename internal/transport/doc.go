// Package transport drives particles through a beamline.
//
// For every element after the particle's current location a [Tracker]:
//
//   - skips the Source once the particle has its starting snapshot
//   - marks the particle lost if the element does not transmit its current
//     transverse position (apertures)
//   - applies the element transform, marking the particle lost on an
//     expansion failure or a non-finite result
//   - appends the new snapshot, location and path length
//
// Losses are recorded on the particle and never returned as errors. Errors
// returned by the tracker are fatal for the run: an undefined rigidity or a
// broken beamline.
//
// [Tracker.TrackEnsemble] tracks a sampled population, optionally across
// several workers, holding the beamline's read lock for the whole pass.
package transport
