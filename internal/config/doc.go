// Package config defines the format-agnostic configuration model for an
// experiment: the root file with its ordered defaults list, the Loader
// interface implemented per file format, the ConfigError taxonomy and the
// frozen Resolved configuration handed to every downstream component.
//
// Concrete loaders live in the formats package; the resolution algorithm
// lives in the resolver package.
package config
