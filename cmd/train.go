package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/infra/dataset"
)

var (
	trainBackend string
	trainDataset string
	trainOut     string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the hybrid ensembles on a labelled dataset and save the bundle",
	RunE:  runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainBackend, "backend", "", "dataset backend (csv, sqlite); overrides training.dataset.backend")
	trainCmd.Flags().StringVar(&trainDataset, "dataset", "", "dataset path; overrides training.dataset.path")
	trainCmd.Flags().StringVarP(&trainOut, "out", "o", "", "bundle output path; defaults to model.bundle_path")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	backend, path := cfg.Training.Dataset.Backend, cfg.Training.Dataset.Path
	if trainBackend != "" {
		backend = trainBackend
	}
	if trainDataset != "" {
		path = trainDataset
	}
	if path == "" {
		return fmt.Errorf("no dataset: set training.dataset.path or --dataset")
	}
	src, err := dataset.Open(backend, path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	samples, err := src.Samples(ctx)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}

	b, err := a.Train(ctx, samples)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	out := cfg.Model.BundlePath
	if trainOut != "" {
		out = trainOut
	}
	if err := a.Save(out); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "bundle %s: %d behaviours from %d samples -> %s\n", b.ID, len(b.Models), b.Samples, out)
	return err
}
