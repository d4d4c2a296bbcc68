// Package viz renders tracking results for the terminal: beam envelope and
// loss plots drawn with asciigraph, and the lipgloss styles the CLI uses
// for headings, metrics and loss bars.
package viz
