// Package tree holds the plain-data representation of a configuration tree
// and the primitive operations the resolver composes: dotted paths, deep
// merge, deep set, delete and a tagged-union view of any node.
//
// A tree is a map[string]any whose leaves are nil, bool, int64, float64,
// string, []any or a nested map[string]any. Loaders are expected to call
// Normalize so that every format produces exactly this shape.
package tree
