//go:build !cellgrid_nocheck

package grid

const checksEnabled = true
