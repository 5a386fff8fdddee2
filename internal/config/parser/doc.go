// Package parser decodes configuration streams into macro and keymap tables.
//
// # Stream layout
//
//	[u16 version]
//	[compact moduleCount] moduleCount x [4-byte module record]
//	[compact macroCount]  macroCount  x [macro record]
//	[compact keymapCount] keymapCount x [keymap record]
//
// Sections are decoded strictly in order and the first error aborts the
// parse. Later sections are never read once an earlier one fails.
//
// # Dry runs
//
// A Parser with DryRun set performs the full decode, including every nested
// macro and keymap validation, and reports the same errors, but never
// commits to the live tables. Callers validate an upload with a dry run and
// only then parse it for real:
//
//	p := parser.New(macros, keymaps, parser.WithDryRun(true))
//	if _, err := p.Parse(staged); err != nil {
//	    return err // live tables untouched
//	}
//	p.DryRun = false
//	_, err := p.Parse(staged)
package parser
