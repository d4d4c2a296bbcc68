// Package beamline assembles elements into an ordered, indexed facility
// description and lays out its geometry.
//
// A [BeamLine] is built once, either element by element with [BeamLine.Append]
// or from a parameter [Table] with [FromTable], and is read-only after
// [BeamLine.Build]. Building enforces that the first element is the only
// [elements.KindSource] and binds each element to its index and exit-plane
// placement, recording the reference trajectory's interface positions on the
// [physics.Reference].
//
// Parameter tables are lists of (Element, Parameter, Value) rows and are read
// from CSV by [LoadTable]. Consecutive rows naming the same element type
// describe one instance until a parameter repeats or a "Name" row appears.
package beamline
