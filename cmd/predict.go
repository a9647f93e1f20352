package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/core/forecast"
)

var (
	predictInput   string
	predictMode    string
	predictVerbose bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict behaviour probabilities for one feature vector",
	Long: "Reads a JSON object of feature values (all canonical features are required) " +
		"and prints the prediction of every behaviour.",
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "-", "feature vector JSON file, - for stdin")
	predictCmd.Flags().StringVar(&predictMode, "mode", string(forecast.ModeHybrid), "hybrid or symbolic")
	predictCmd.Flags().BoolVarP(&predictVerbose, "verbose", "v", false, "include bundle metadata")
	rootCmd.AddCommand(predictCmd)
}

type bundleInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Samples   int       `json:"samples"`
	Trained   []string  `json:"trained_behaviors"`
	Features  []string  `json:"augmented_features"`
}

func runPredict(cmd *cobra.Command, args []string) error {
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
	fv, err := readFeatures(cmd, predictInput)
	if err != nil {
		return err
	}

	out := map[string]any{}
	switch forecast.Mode(predictMode) {
	case forecast.ModeHybrid:
		preds, err := a.PredictHybrid(fv)
		if err != nil {
			return err
		}
		out["predictions"] = preds
	case forecast.ModeSymbolic:
		preds, err := a.PredictSymbolic(fv)
		if err != nil {
			return err
		}
		out["predictions"] = preds
	default:
		return fmt.Errorf("unknown mode %q", predictMode)
	}
	if predictVerbose {
		b := a.Bundle()
		trained := make([]string, 0, len(b.Models))
		for name := range b.Models {
			trained = append(trained, name)
		}
		sort.Strings(trained)
		out["bundle"] = bundleInfo{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			Samples:   b.Samples,
			Trained:   trained,
			Features:  b.AugmentedFeatures,
		}
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
