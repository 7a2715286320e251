// Package document holds the in-memory representation of a live answer
// document: a JSON-like tree of maps, slices and scalars addressed by
// dotted key paths.
//
// The tree is treated as immutable by convention. Mutating helpers (Set,
// Delete) copy the spine they touch and return a new root, so callers can
// hold old snapshots safely. A logical Clock stamps each replacement of
// the tree; derived computations cache against the clock instead of
// diffing values.
package document
