// Package ensemble implements the tree ensembles used by the hybrid
// predictor: a bagged random forest and a gradient boosted classifier, both
// built from the same CART regression trees, plus the column scaler applied
// to their inputs. All models are plain data and serialise to JSON.
package ensemble
