package model

import (
	"errors"
	"fmt"
	"strings"
)

// Canonical feature keys of an environmental observation.
const (
	FeatureLatitude     = "latitude"
	FeatureLongitude    = "longitude"
	FeatureDepth        = "depth"
	FeatureTemperature  = "temperature"
	FeatureTidalFlow    = "tidal_flow"
	FeaturePreyDensity  = "prey_density"
	FeatureNoiseLevel   = "noise_level"
	FeatureVisibility   = "visibility"
	FeatureCurrentSpeed = "current_speed"
	FeatureSalinity     = "salinity"
	FeaturePodSize      = "pod_size"
	FeatureHourOfDay    = "hour_of_day"
	FeatureDayOfYear    = "day_of_year"
)

var featureNames = []string{
	FeatureLatitude,
	FeatureLongitude,
	FeatureDepth,
	FeatureTemperature,
	FeatureTidalFlow,
	FeaturePreyDensity,
	FeatureNoiseLevel,
	FeatureVisibility,
	FeatureCurrentSpeed,
	FeatureSalinity,
	FeaturePodSize,
	FeatureHourOfDay,
	FeatureDayOfYear,
}

// ErrMissingFeature is returned when a feature vector lacks a canonical key.
var ErrMissingFeature = errors.New("missing feature")

// FeatureNames returns the canonical feature ordering.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// IsFeature reports whether name is one of the canonical feature keys.
func IsFeature(name string) bool {
	for _, f := range featureNames {
		if f == name {
			return true
		}
	}
	return false
}

// FeatureVector maps canonical feature names to observed values.
type FeatureVector map[string]float64

// Validate checks that every canonical key is present.
func (fv FeatureVector) Validate() error {
	var missing []string
	for _, name := range featureNames {
		if _, ok := fv[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFeature, strings.Join(missing, ", "))
	}
	return nil
}

// Values returns the feature values in canonical order. Missing keys yield an
// error rather than a zero value.
func (fv FeatureVector) Values() ([]float64, error) {
	if err := fv.Validate(); err != nil {
		return nil, err
	}
	out := make([]float64, len(featureNames))
	for i, name := range featureNames {
		out[i] = fv[name]
	}
	return out, nil
}

// Clone returns an independent copy of the vector.
func (fv FeatureVector) Clone() FeatureVector {
	cp := make(FeatureVector, len(fv))
	for k, v := range fv {
		cp[k] = v
	}
	return cp
}

// With returns a copy of the vector with key set to v.
func (fv FeatureVector) With(key string, v float64) FeatureVector {
	cp := fv.Clone()
	cp[key] = v
	return cp
}
