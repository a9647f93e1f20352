package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/core/forecast"
	"github.com/kilianp07/marinecast/pkg/export"
)

var (
	forecastInput      string
	forecastLat        []float64
	forecastLng        []float64
	forecastHours      int
	forecastResolution int
	forecastMode       string
	forecastFormat     string
	forecastOut        string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Sweep predictions over a latitude/longitude grid and an hour range",
	RunE:  runForecast,
}

func init() {
	f := forecastCmd.Flags()
	f.StringVarP(&forecastInput, "input", "i", "-", "base feature vector JSON file, - for stdin")
	f.Float64SliceVar(&forecastLat, "lat", nil, "latitude range as min,max")
	f.Float64SliceVar(&forecastLng, "lng", nil, "longitude range as min,max")
	f.IntVar(&forecastHours, "hours", 0, "hours to sweep; defaults to forecast.hours")
	f.IntVar(&forecastResolution, "resolution", 0, "points per axis; defaults to forecast.resolution")
	f.StringVar(&forecastMode, "mode", "", "hybrid or symbolic; defaults to forecast.mode")
	f.StringVar(&forecastFormat, "format", "json", "output format (json, csv)")
	f.StringVarP(&forecastOut, "out", "o", "-", "output file, - for stdout")
	_ = forecastCmd.MarkFlagRequired("lat")
	_ = forecastCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	if len(forecastLat) != 2 || len(forecastLng) != 2 {
		return fmt.Errorf("--lat and --lng take exactly two values")
	}
	ctx, stop := signalContext()
	defer stop()

	cfg, a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := loadServedBundle(cmd, cfg, a); err != nil {
		return err
	}
	base, err := readFeatures(cmd, forecastInput)
	if err != nil {
		return err
	}

	req := forecast.Request{
		LatRange:   [2]float64{forecastLat[0], forecastLat[1]},
		LngRange:   [2]float64{forecastLng[0], forecastLng[1]},
		Base:       base,
		Hours:      cfg.Forecast.Hours,
		Resolution: cfg.Forecast.Resolution,
		Mode:       forecast.Mode(cfg.Forecast.Mode),
	}
	if forecastHours > 0 {
		req.Hours = forecastHours
	}
	if forecastResolution > 0 {
		req.Resolution = forecastResolution
	}
	if forecastMode != "" {
		req.Mode = forecast.Mode(forecastMode)
	}

	res, err := a.Forecast(ctx, req)
	if err != nil {
		return err
	}
	w, closeOut, err := createOutput(cmd, forecastOut)
	if err != nil {
		return err
	}
	switch forecastFormat {
	case "json":
		err = export.WriteJSON(w, res)
	case "csv":
		err = export.WriteCSV(w, res)
	default:
		err = fmt.Errorf("unknown format %q", forecastFormat)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}
