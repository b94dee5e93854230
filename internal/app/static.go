package app

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/ecoly/ecoly/web"
)

// Minimal containers ship without /etc/mime.types, so the types the asset
// tree uses are registered explicitly.
var staticTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".woff2": "font/woff2",
}

func registerStaticTypes(logger *slog.Logger) {
	for ext, typ := range staticTypes {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			logger.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}

// staticHandler serves the embedded assets with a one hour browser cache.
func staticHandler(logger *slog.Logger) http.Handler {
	registerStaticTypes(logger)
	files := http.StripPrefix("/static/", http.FileServer(http.FS(web.Static())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
