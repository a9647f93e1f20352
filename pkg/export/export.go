// Package export writes forecast results in formats consumed by mapping and
// dashboard tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/kilianp07/marinecast/core/forecast"
)

// WriteJSON writes the full forecast, hour series included, as indented JSON.
func WriteJSON(w io.Writer, res *forecast.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{"latitude", "longitude", "behavior", "mean_probability", "peak_hour", "peak_probability"}

// WriteCSV writes one row per grid point and behaviour with the mean
// probability and the hour at which the probability peaks. Rows follow the
// grid order, behaviours sorted by name.
func WriteCSV(w io.Writer, res *forecast.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, p := range res.Points {
		behaviors := make([]string, 0, len(p.MeanProbability))
		for b := range p.MeanProbability {
			behaviors = append(behaviors, b)
		}
		sort.Strings(behaviors)
		for _, b := range behaviors {
			hour, peak := peakOf(p, b)
			rec := []string{
				formatFloat(p.Latitude),
				formatFloat(p.Longitude),
				b,
				formatFloat(p.MeanProbability[b]),
				strconv.Itoa(hour),
				formatFloat(peak),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// peakOf returns the first hour with the highest probability for behavior.
func peakOf(p forecast.GridPoint, behavior string) (int, float64) {
	hour, peak := -1, 0.0
	for _, h := range p.Hours {
		pred, ok := h.Predictions[behavior]
		if !ok {
			continue
		}
		if hour < 0 || pred.Probability > peak {
			hour, peak = h.Hour, pred.Probability
		}
	}
	return hour, peak
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
