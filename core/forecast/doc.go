// Package forecast sweeps a latitude/longitude grid over a range of hours
// and summarises the per-behaviour predictions of every grid point.
package forecast
