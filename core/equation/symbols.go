package equation

import "github.com/kilianp07/marinecast/core/model"

// aliases maps the short symbols used by discovered equations to canonical
// feature names. Canonical names are always accepted as symbols as well.
var aliases = map[string]string{
	"lat": model.FeatureLatitude,
	"lng": model.FeatureLongitude,
	"D":   model.FeatureDepth,
	"T":   model.FeatureTemperature,
	"F":   model.FeatureTidalFlow,
	"P":   model.FeaturePreyDensity,
	"L":   model.FeatureNoiseLevel,
	"V":   model.FeatureVisibility,
	"C":   model.FeatureCurrentSpeed,
	"S":   model.FeatureSalinity,
	"G":   model.FeaturePodSize,
	"N":   model.FeatureHourOfDay,
	"Y":   model.FeatureDayOfYear,
}

// ResolveSymbol returns the feature name a symbol refers to.
func ResolveSymbol(sym string) (string, bool) {
	if f, ok := aliases[sym]; ok {
		return f, true
	}
	if model.IsFeature(sym) {
		return sym, true
	}
	return "", false
}

// FeatureLookup binds symbol resolution to a feature vector. Keys of fv that
// the expression does not reference are ignored.
func FeatureLookup(fv model.FeatureVector) Lookup {
	return func(sym string) (float64, bool) {
		name, ok := ResolveSymbol(sym)
		if !ok {
			return 0, false
		}
		v, ok := fv[name]
		return v, ok
	}
}
