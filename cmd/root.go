package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/app"
	"github.com/kilianp07/marinecast/config"
	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "marinecast",
	Short:        "Hybrid marine mammal behaviour prediction",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
}

// Execute runs the CLI. Errors are reported to the configured monitor.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"op": "cli"})
		monitoring.Flush(monitoring.FlushTimeout)
	}
	return err
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openApp loads the configuration and builds a started App. The caller
// must call the returned cleanup.
func openApp(ctx context.Context) (*config.Config, *app.App, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	a.Start(ctx)
	return cfg, a, a.Close, nil
}

// loadServedBundle serves the configured bundle when it exists. A missing
// file keeps the symbolic-only bundle; an unreadable one is an error.
func loadServedBundle(cmd *cobra.Command, cfg *config.Config, a *app.App) error {
	path := cfg.Model.BundlePath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "no bundle at %s, serving equations only\n", path)
		return nil
	}
	if !a.Load(path) {
		return fmt.Errorf("bundle %s could not be loaded", path)
	}
	return nil
}

// readFeatures decodes a feature vector from path, or stdin for "-".
func readFeatures(cmd *cobra.Command, path string) (model.FeatureVector, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var fv model.FeatureVector
	if err := json.NewDecoder(r).Decode(&fv); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return fv, nil
}

// createOutput opens path for writing, or stdout for "" and "-".
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
