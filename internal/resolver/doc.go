// Package resolver turns a root configuration file, its ordered defaults
// list and the command-line overrides into one frozen config.Resolved.
//
// Resolution is a single ordered pass. Default selections are loaded and
// merged under their group key in declaration order, root fields are merged
// at the top level, then overrides are applied in the order given: a
// selection replaces the group's subtree, a removal deletes it and a set
// deep-assigns one key. Later operations always win. Template placeholders
// are expanded once at the end and the tree is frozen.
//
// Every token is parsed and checked against the known groups before any
// variant file is read, and nothing is returned unless the whole pass
// succeeds.
package resolver
