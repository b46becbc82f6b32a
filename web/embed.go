// Package web embeds the observer dashboard (dist/).
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
)

//go:embed all:dist
var distFS embed.FS

const indexPage = "index.html"

// SPAHandler serves the embedded dashboard. Files under dist/ are served
// as-is; any other path gets index.html so the dashboard can be linked with
// a session query from any route. index.html is served with no-cache.
func SPAHandler() http.Handler {
	dist, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to open embedded dashboard: " + err.Error())
	}
	index, err := fs.ReadFile(dist, indexPage)
	if err != nil {
		panic("web: dashboard has no " + indexPage + ": " + err.Error())
	}
	files := http.FileServerFS(dist)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || name == indexPage || !isFile(dist, name) {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeContent(w, r, indexPage, time.Time{}, bytes.NewReader(index))
			return
		}
		files.ServeHTTP(w, r)
	})
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
