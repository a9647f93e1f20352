package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/marinecast/core/equation"
)

var equationsFromBundle bool

var equationsCmd = &cobra.Command{
	Use:   "equations",
	Short: "Print the equation registry",
	RunE:  runEquations,
}

var equationsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the equation registry as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runEquationsExport,
}

func init() {
	equationsCmd.PersistentFlags().BoolVar(&equationsFromBundle, "from-bundle", false, "use the equations stored in model.bundle_path")
	equationsCmd.AddCommand(equationsExportCmd)
	rootCmd.AddCommand(equationsCmd)
}

func loadRegistry() (*equation.Registry, func(), error) {
	ctx, stop := signalContext()
	cfg, a, cleanup, err := openApp(ctx)
	if err != nil {
		stop()
		return nil, nil, err
	}
	done := func() { cleanup(); stop() }
	reg := a.Registry()
	if equationsFromBundle {
		if err := a.LoadBundle(cfg.Model.BundlePath); err != nil {
			done()
			return nil, nil, err
		}
		reg = a.Bundle().Registry
	}
	return reg, done, nil
}

func runEquations(cmd *cobra.Command, args []string) error {
	reg, done, err := loadRegistry()
	if err != nil {
		return err
	}
	defer done()
	w := cmd.OutOrStdout()
	for _, e := range reg.Entries() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", e.Behavior, e.Expression); err != nil {
			return err
		}
		if len(e.KeyFactors) > 0 {
			if _, err := fmt.Fprintf(w, "  key factors: %s\n", strings.Join(e.KeyFactors, ", ")); err != nil {
				return err
			}
		}
	}
	return nil
}

func runEquationsExport(cmd *cobra.Command, args []string) error {
	reg, done, err := loadRegistry()
	if err != nil {
		return err
	}
	defer done()
	if err := equation.WriteRegistryFile(args[0], reg); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d equations written to %s\n", reg.Len(), args[0])
	return err
}
