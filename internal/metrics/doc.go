// Package metrics summarises tracked particles into scalar run metrics.
//
// Each metric observes finished particles one at a time and reports a
// single value; the tracker resets them at the start of every ensemble.
package metrics
