// Package key defines the HID-level vocabulary shared by macro actions and
// keymap key actions: keystroke types, modifier masks and mouse buttons.
//
// Each type has a textual form used by configuration documents:
//
//	key.ParseKeystrokeType("media")   // KeystrokeMedia
//	key.ParseModifiers("lctrl+lshift") // ModLeftCtrl|ModLeftShift
package key
