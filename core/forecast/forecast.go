package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/marinecast/core/model"
)

// DefaultHours is the sweep length used when none is configured. Longer
// sweeps are allowed; hour_of_day then counts hours from the sweep start.
const DefaultHours = 24

// ErrInvalidRequest is returned for malformed forecast requests.
var ErrInvalidRequest = errors.New("invalid forecast request")

// Mode selects the prediction path used for every cell.
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeSymbolic Mode = "symbolic"
)

// Request describes one grid sweep. Ranges are inclusive.
type Request struct {
	LatRange   [2]float64          `json:"lat_range"`
	LngRange   [2]float64          `json:"lng_range"`
	Base       model.FeatureVector `json:"base"`
	Hours      int                 `json:"hours"`
	Resolution int                 `json:"resolution"`
	Mode       Mode                `json:"mode"`
}

// Validate checks the request and fills the default mode.
func (r *Request) Validate() error {
	if r.Resolution < 1 {
		return fmt.Errorf("%w: resolution must be >= 1, got %d", ErrInvalidRequest, r.Resolution)
	}
	if r.Hours < 1 {
		return fmt.Errorf("%w: hours must be >= 1, got %d", ErrInvalidRequest, r.Hours)
	}
	for _, rg := range [][2]float64{r.LatRange, r.LngRange} {
		if !finite(rg[0]) || !finite(rg[1]) || rg[0] > rg[1] {
			return fmt.Errorf("%w: bad range %v", ErrInvalidRequest, rg)
		}
	}
	if r.Mode == "" {
		r.Mode = ModeHybrid
	}
	if r.Mode != ModeHybrid && r.Mode != ModeSymbolic {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, r.Mode)
	}
	return r.Base.Validate()
}

// HourPrediction holds the predictions of one swept hour.
type HourPrediction struct {
	Hour        int                               `json:"hour"`
	Predictions map[string]model.HybridPrediction `json:"predictions"`
}

// GridPoint is one cell of the forecast surface.
type GridPoint struct {
	Latitude        float64            `json:"latitude"`
	Longitude       float64            `json:"longitude"`
	Hours           []HourPrediction   `json:"hours"`
	MeanProbability map[string]float64 `json:"mean_probability"`
}

// Result is the output of one sweep. Points are ordered by latitude, then
// longitude.
type Result struct {
	RunID      string      `json:"run_id"`
	Mode       Mode        `json:"mode"`
	Hours      int         `json:"hours"`
	Resolution int         `json:"resolution"`
	Points     []GridPoint `json:"points"`
}

// Axis returns n evenly spaced values from lo to hi inclusive. A single
// value is the range start.
func Axis(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
