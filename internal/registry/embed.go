package registry

import (
	"embed"
	"io/fs"
)

// Builtin modules shipped with the CLI. Each subdirectory is one module:
// a module.cue manifest plus a files/ contribution tree.
//
//go:embed all:builtin
var builtinFS embed.FS

// Builtin returns the embedded builtin module source.
func Builtin() fs.FS {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		// The embedded tree always contains builtin/; this cannot fail at runtime.
		panic(err)
	}
	return sub
}
