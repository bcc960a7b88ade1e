//go:build cellgrid_nocheck

package grid

// Precondition checks are compiled out. Violations are undefined behavior.
const checksEnabled = false
