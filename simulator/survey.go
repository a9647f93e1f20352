// Package simulator generates synthetic labelled survey observations. The
// output is meant for demos and smoke tests of the training pipeline; the
// label rules are illustrative and carry no biological claim.
package simulator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/kilianp07/marinecast/core/model"
	"github.com/kilianp07/marinecast/core/prediction"
)

// SurveyConfig holds parameters for bulk observation generation.
type SurveyConfig struct {
	Size     int
	Seed     int64
	LatRange [2]float64
	LngRange [2]float64
	// Activity scales behaviour likelihood per hour of day. A zero profile
	// is replaced by DefaultActivity.
	Activity [24]float64
	// UnlabelledRate is the probability that a behaviour is left without a
	// label on a given observation.
	UnlabelledRate float64
}

// Validate checks the configuration.
func (c SurveyConfig) Validate() error {
	if c.Size <= 0 {
		return errors.New("size must be positive")
	}
	if c.LatRange[0] > c.LatRange[1] || c.LngRange[0] > c.LngRange[1] {
		return errors.New("ranges must be ascending")
	}
	if c.UnlabelledRate < 0 || c.UnlabelledRate >= 1 {
		return fmt.Errorf("unlabelled rate %v outside [0,1)", c.UnlabelledRate)
	}
	return nil
}

// DefaultActivity peaks at dawn and dusk.
func DefaultActivity() [24]float64 {
	var prof [24]float64
	for h := range prof {
		switch {
		case h >= 5 && h <= 8, h >= 17 && h <= 20:
			prof[h] = 1
		case h >= 9 && h <= 16:
			prof[h] = 0.6
		default:
			prof[h] = 0.3
		}
	}
	return prof
}

// GenerateSurvey creates Size observations. The same configuration always
// yields the same observations.
func GenerateSurvey(cfg SurveyConfig) []model.TrainingSample {
	if cfg.Size <= 0 {
		return nil
	}
	if cfg.Activity == ([24]float64{}) {
		cfg.Activity = DefaultActivity()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	out := make([]model.TrainingSample, cfg.Size)
	for i := range out {
		fv := observe(rng, cfg)
		labels := map[string]bool{}
		probs := likelihoods(fv, cfg.Activity[int(fv[model.FeatureHourOfDay])])
		for _, name := range model.Behaviors() {
			if cfg.UnlabelledRate > 0 && rng.Float64() < cfg.UnlabelledRate {
				continue
			}
			labels[name] = rng.Float64() < probs[name]
		}
		out[i] = model.TrainingSample{Features: fv, Labels: labels}
	}
	return out
}

func observe(rng *rand.Rand, cfg SurveyConfig) model.FeatureVector {
	between := func(r [2]float64) float64 { return r[0] + rng.Float64()*(r[1]-r[0]) }
	return model.FeatureVector{
		model.FeatureLatitude:     between(cfg.LatRange),
		model.FeatureLongitude:    between(cfg.LngRange),
		model.FeatureDepth:        5 + rng.Float64()*195,
		model.FeatureTemperature:  8 + rng.NormFloat64()*2,
		model.FeatureTidalFlow:    rng.Float64()*2 - 1,
		model.FeaturePreyDensity:  rng.Float64(),
		model.FeatureNoiseLevel:   45 + rng.Float64()*35,
		model.FeatureVisibility:   rng.Float64() * 20,
		model.FeatureCurrentSpeed: rng.Float64() * 1.5,
		model.FeatureSalinity:     30 + rng.Float64()*4,
		model.FeaturePodSize:      float64(1 + rng.Intn(15)),
		model.FeatureHourOfDay:    float64(rng.Intn(24)),
		model.FeatureDayOfYear:    float64(1 + rng.Intn(365)),
	}
}

func likelihoods(fv model.FeatureVector, activity float64) map[string]float64 {
	return map[string]float64{
		model.BehaviorFeeding: prediction.Score(4*(fv[model.FeaturePreyDensity]-0.5) +
			2*(activity-0.5) - 0.05*(fv[model.FeatureNoiseLevel]-60)),
		model.BehaviorSocializing: prediction.Score(0.4*(fv[model.FeaturePodSize]-7) -
			fv[model.FeatureCurrentSpeed]),
		model.BehaviorTraveling: prediction.Score(3*(fv[model.FeatureCurrentSpeed]-0.75) +
			0.01*(fv[model.FeatureDepth]-100)),
		model.BehaviorResting: prediction.Score(2*(0.6-activity) -
			0.1*(fv[model.FeatureNoiseLevel]-55)),
	}
}

// LoadActivityProfile reads an hourly activity profile from JSON keyed by
// hour ("0".."23"). Hours outside the range or not numeric are ignored.
func LoadActivityProfile(data []byte) ([24]float64, error) {
	var m map[string]float64
	var prof [24]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return prof, err
	}
	for h, v := range m {
		var hour int
		if _, err := fmt.Sscanf(h, "%d", &hour); err != nil {
			continue
		}
		if hour >= 0 && hour < 24 {
			prof[hour] = v
		}
	}
	return prof, nil
}
