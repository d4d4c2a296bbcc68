// Package optim scans beamline parameters. A GridSearch rewrites chosen
// entries of a parameter table, rebuilds the line for every combination
// and keeps the combination with the best tracking metric.
package optim
