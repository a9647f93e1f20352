package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/marinecast/core/forecast"
	"github.com/kilianp07/marinecast/core/model"
)

const baseFeatures = `{"latitude":48.5,"longitude":-123.5,"depth":60,"temperature":10,
"tidal_flow":0.2,"prey_density":0.8,"noise_level":55,"visibility":9,"current_speed":0.4,
"salinity":31,"pod_size":5,"hour_of_day":7,"day_of_year":190}`

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), strings.Join(args, " "))
	return out.String()
}

func TestCommandsEndToEnd(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "model.bundle")
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`model:
  bundle_path: "`+bundlePath+`"
training:
  trees: 5
  workers: 2
logging:
  level: "error"
`), 0o644))
	survey := filepath.Join(dir, "survey.db")

	execute(t, "", "simulate", "--config", cfgFile, "--size", "120", "--backend", "sqlite", "--out", survey)
	out := execute(t, "", "train", "--config", cfgFile, "--backend", "sqlite", "--dataset", survey)
	assert.Contains(t, out, "4 behaviours from 120 samples")
	_, err := os.Stat(bundlePath)
	require.NoError(t, err)

	out = execute(t, baseFeatures, "predict", "--config", cfgFile, "--verbose")
	var pred struct {
		Predictions map[string]model.HybridPrediction `json:"predictions"`
		Bundle      bundleInfo                        `json:"bundle"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Equal(t, model.MethodHybrid, pred.Predictions[model.BehaviorFeeding].Method)
	assert.Equal(t, model.MethodMLOnly, pred.Predictions[model.BehaviorResting].Method)
	assert.Equal(t, 120, pred.Bundle.Samples)

	out = execute(t, baseFeatures, "forecast", "--config", cfgFile,
		"--lat", "48,49", "--lng", "-124,-123", "--hours", "2", "--resolution", "3")
	var res forecast.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Points, 9)
	assert.Equal(t, forecast.ModeHybrid, res.Mode)

	csvPath := filepath.Join(dir, "forecast.csv")
	execute(t, baseFeatures, "forecast", "--config", cfgFile,
		"--lat", "48,49", "--lng", "-124,-123", "--hours", "1", "--resolution", "1",
		"--format", "csv", "--out", csvPath)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "latitude,"))

	out = execute(t, "", "equations", "--config", cfgFile, "--from-bundle")
	assert.Contains(t, out, model.BehaviorFeeding+": ")

	yamlPath := filepath.Join(dir, "equations.yaml")
	out = execute(t, "", "equations", "export", yamlPath, "--config", cfgFile)
	assert.Contains(t, out, "3 equations written")
}
