// Package macro holds the decoded macro table and the name resolver used by
// event triggers.
//
// # Concepts
//
// A macro is an opaque action body with a name and a stable index. The index
// is how every other subsystem refers to a macro: trigger tables, the
// scheduler and the slot engine all carry indices, never names.
//
// Entries are created once when a configuration is parsed and are immutable
// afterwards. A new configuration replaces the whole table.
//
// # Names
//
// A macro name is a sequence of tokens separated by whitespace or ':'.
// Reserved first tokens turn a macro into an event trigger:
//
//	$onInit
//	$onKeymapChange <abbrev|any>
//	$onLayerChange <layer|any>
//	$onKeymapLayerChange <abbrev> <layer>
//
// Tokens are computed once per entry and compared byte for byte. Matching is
// case-sensitive and performs no normalization.
//
// # Lookup
//
//	ref := table.FindIndexByName("$onInit")
//	if i, ok := ref.Get(); ok {
//	    // start macro i
//	}
//
//	for _, i := range table.Match("$onKeymapChange", "any") {
//	    // every macro whose first two tokens match, in table order
//	}
//
// # Thread Safety
//
// Table is safe for concurrent use. Replace swaps the entry set atomically
// with respect to readers.
package macro
