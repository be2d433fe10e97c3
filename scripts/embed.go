// Package scripts ships the built-in classifier scripts.
package scripts

import "embed"

// FS holds classify/*.risor. Select one on the command line with
// --classifier builtin:<name>.
//
//go:embed classify/*.risor
var FS embed.FS
