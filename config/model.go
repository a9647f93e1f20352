package config

import "fmt"

// ModelConfig locates the persisted model bundle and the equation registry.
type ModelConfig struct {
	// BundlePath is where trained bundles are saved and loaded from.
	BundlePath string `json:"bundle_path"`
	// EquationsPath optionally points to a YAML registry replacing the
	// built-in equations.
	EquationsPath string `json:"equations_path"`
}

// SetDefaults applies sane defaults.
func (c *ModelConfig) SetDefaults() {
	if c.BundlePath == "" {
		c.BundlePath = "marinecast.bundle"
	}
}

// Validate checks mandatory fields.
func (c ModelConfig) Validate() error {
	if c.BundlePath == "" {
		return fmt.Errorf("bundle_path is required")
	}
	return nil
}
