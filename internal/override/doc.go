// Package override parses command-line override tokens:
//
//	group=variant   select a variant (also written group.variant)
//	~group          remove a group selection
//	~group=variant  remove it, checking the current variant
//	key.path=value  deep set an existing key
//	+key.path=value deep set, allowed to create a new top-level key
//
// Values are typed greedily: null, bool, int and float are tried before the
// token falls back to a string. Quotes force a string.
package override
