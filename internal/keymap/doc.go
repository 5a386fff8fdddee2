// Package keymap provides the decoded keymap table and the layer model.
//
// A keymap is identified by its index and carries a short abbreviation used
// to scope keymap-specific macro triggers. Each keymap holds one key action
// table per layer and per module.
//
// The table's contents change only when a configuration is committed. A dry
// run parse never touches it.
package keymap
