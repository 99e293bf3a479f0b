// Package buildinfo exposes the ctxtidy binary version for the version
// command and report metadata.
package buildinfo

import "runtime/debug"

// BinaryVersion is set at build time via -ldflags. Defaults to "dev".
var BinaryVersion = "dev"

// Version returns the best available version string: the ldflags value
// when stamped, otherwise whatever the Go toolchain embedded.
func Version() string {
	if BinaryVersion != "" && BinaryVersion != "dev" {
		return BinaryVersion
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return BinaryVersion
}
