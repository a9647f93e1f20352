// Package prediction turns feature vectors into behaviour predictions. The
// symbolic path squashes equation outputs through a logistic function; the
// hybrid path feeds the symbolic probabilities, together with the raw
// features, to the trained ensembles and blends both signals. Predictions are
// independent per behaviour and are not normalised across behaviours.
package prediction
