// Package ui embeds the panel page served at the root of the HTTP server.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed dist
var distFS embed.FS

// Title is the page title of the panel.
const Title = "CoolLED pE-300 controller"

// Handler serves the embedded assets. Paths without an extension get the
// panel page; missing assets are 404.
func Handler() http.Handler {
	fsys, _ := fs.Sub(distFS, "dist")
	assets := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" || !strings.Contains(path.Base(name), ".") {
			http.ServeFileFS(w, r, fsys, "index.html")
			return
		}
		assets.ServeHTTP(w, r)
	})
}
