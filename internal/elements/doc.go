// Package elements models the optical elements of a beamline.
//
// Every element satisfies [Element]; the set of element types is closed and
// identified by [Kind]:
//
//   - [Source]: start of the beamline, carries the source distribution
//   - [Drift], [Facility]: field-free region and zero-length marker
//   - [Aperture]: circular, elliptical or rectangular transmission region
//   - [SectorDipole]: horizontal bend
//   - [Quadrupole]: focusing or defocusing quadrupole
//   - [Composite]: quadrupole doublets and triplets
//   - [Solenoid]
//   - [RFCavity]: cylindrical pillbox cavity
//   - [Octupole]
//   - [GaborLens]: electron-cloud plasma lens
//
// Transfer matrices are memoized per element, keyed on the reference
// rigidity, momentum, species mass and charge. [Element.TransferMatrix]
// hands out a copy of the memoized matrix.
//
// Elements whose transform is a truncated series (RF cavity, octupole,
// Gabor lens) return an [optics.ExpansionError] from Apply when the
// particle lies outside the validity region. The boundary is inclusive: a
// particle exactly at the limit is transformed.
package elements
