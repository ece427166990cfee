package app

import (
	"log/slog"
	"mime"
)

// staticMimeTypes covers the embedded assets and downloads. Minimal
// containers ship without /etc/mime.types, so the defaults can be missing.
var staticMimeTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".woff2": "font/woff2",
	".csv":   "text/csv; charset=utf-8",
	".pdf":   "application/pdf",
}

func init() {
	registerMimeTypes(staticMimeTypes)
}

func registerMimeTypes(types map[string]string) {
	for ext, typ := range types {
		if mime.TypeByExtension(ext) != "" {
			continue
		}
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
		}
	}
}
