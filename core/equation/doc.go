// Package equation holds the discovered behaviour equations and evaluates
// them against environmental feature vectors. Expressions are small trees
// over a closed set of node kinds and are interpreted directly; evaluation
// failures never reach callers and contribute a neutral 0.0 instead.
package equation
