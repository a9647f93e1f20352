package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/infra/dataset"
	"github.com/kilianp07/marinecast/simulator"
)

var (
	simSize         int
	simSeed         int64
	simLat          []float64
	simLng          []float64
	simActivityFile string
	simUnlabelled   float64
	simBackend      string
	simOut          string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a synthetic labelled survey dataset",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simSize, "size", 500, "number of observations")
	f.Int64Var(&simSeed, "seed", 42, "random seed")
	f.Float64SliceVar(&simLat, "lat", []float64{48, 49}, "latitude range as min,max")
	f.Float64SliceVar(&simLng, "lng", []float64{-124, -123}, "longitude range as min,max")
	f.StringVar(&simActivityFile, "activity-file", "", "hourly activity profile JSON")
	f.Float64Var(&simUnlabelled, "unlabelled-rate", 0, "probability that a behaviour label is omitted")
	f.StringVar(&simBackend, "backend", "csv", "dataset backend (csv, sqlite)")
	f.StringVarP(&simOut, "out", "o", "survey.csv", "output path")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if len(simLat) != 2 || len(simLng) != 2 {
		return fmt.Errorf("--lat and --lng take exactly two values")
	}
	cfg := simulator.SurveyConfig{
		Size:           simSize,
		Seed:           simSeed,
		LatRange:       [2]float64{simLat[0], simLat[1]},
		LngRange:       [2]float64{simLng[0], simLng[1]},
		UnlabelledRate: simUnlabelled,
	}
	if simActivityFile != "" {
		data, err := os.ReadFile(simActivityFile)
		if err != nil {
			return fmt.Errorf("activity file: %w", err)
		}
		if cfg.Activity, err = simulator.LoadActivityProfile(data); err != nil {
			return fmt.Errorf("activity file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid survey: %w", err)
	}
	samples := simulator.GenerateSurvey(cfg)

	ctx, stop := signalContext()
	defer stop()
	switch simBackend {
	case "csv":
		w, closeOut, err := createOutput(cmd, simOut)
		if err != nil {
			return err
		}
		err = dataset.WriteCSV(w, samples)
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	case "sqlite":
		store, err := dataset.NewSQLiteStore(simOut)
		if err != nil {
			return err
		}
		err = store.Add(ctx, samples...)
		if cerr := store.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", dataset.ErrUnknownBackend, simBackend)
	}
	if simOut == "" || simOut == "-" {
		return nil
	}
	_, err := fmt.Fprintf(cmd.ErrOrStderr(), "%d observations written to %s\n", len(samples), simOut)
	return err
}
