// Package formats provides the concrete config.Loader implementations and a
// registry that picks one by file extension.
//
// Every loader returns the normalized tree shape described in package tree,
// so a variant written in YAML, TOML or HCL merges identically.
package formats
