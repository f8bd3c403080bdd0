// Package features computes neighborhood statistics ("features") over a
// source point cloud and writes them onto a target point cloud.
//
// Extractors form a closed set of kinds (see Kind); each is built from a
// Config value by New and declares the attributes it Requires and the
// feature names it Provides. Extract is vectorized: it handles every
// target point in one call and returns one value slice per provided name.
// Extractors never mutate the source cloud and never compute another
// extractor's output; prerequisite attributes (for example
// normalized_height) must already be present on the source.
//
// Numeric policy: an empty neighborhood, or one smaller than the minimum
// sample count of a statistic, produces NaN rather than an error.
//
// The Registry maps every feature name to the one extractor that provides
// it and refuses to build when two extractors claim the same name. Compute
// drives a set of extractors for a list of feature names.
package features
