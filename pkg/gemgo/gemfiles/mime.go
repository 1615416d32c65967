package gemfiles

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// fallbackMIMETypes covers media extensions the platform mime database may
// miss. Keys are lower-case extensions including the dot.
var fallbackMIMETypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".json": "application/json",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".gif":  "image/gif",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".mpeg": "video/mpeg",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".wmv":  "video/x-ms-wmv",
	".3gp":  "video/3gpp",
}

// MIMETypeForPath resolves the MIME type of a file from its extension.
// Parameters reported by the platform database (charset, ...) are stripped.
// An unknown extension is an error.
func MIMETypeForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "", fmt.Errorf("gemfiles: no file extension in %q", filepath.Base(path))
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t, nil
	}
	if t, ok := fallbackMIMETypes[ext]; ok {
		return t, nil
	}
	return "", fmt.Errorf("gemfiles: unsupported file type %q", ext)
}
