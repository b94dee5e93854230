// Package web bundles the HTML templates and browser assets into the binaries.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templates embed.FS

//go:embed static
var static embed.FS

// Templates returns the template tree with layouts/, partials/ and pages/ at its root.
func Templates() fs.FS {
	return mustSub(templates, "templates")
}

// Static returns the asset tree served under /static/.
func Static() fs.FS {
	return mustSub(static, "static")
}

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
