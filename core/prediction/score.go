package prediction

import "math"

// Blend weights applied when a behaviour has trained ensembles.
const (
	SindyWeight = 0.3
	MLWeight    = 0.7
)

// Score maps a raw equation output to a probability with the logistic
// function. Score(0) is 0.5.
func Score(raw float64) float64 {
	return 1 / (1 + math.Exp(-raw))
}

// Blend combines the symbolic and ensemble probabilities.
func Blend(sindy, ml float64) float64 {
	return SindyWeight*sindy + MLWeight*ml
}
