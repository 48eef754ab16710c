package util

import (
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"go-fileops/pkg/fserr"
)

const (
	DefaultSniffBytes = 512
	FallbackMIME      = "application/octet-stream"
	DirectoryMIME     = "inode/directory"
)

// extensionTypes covers common extensions that the system mime tables often lack.
var extensionTypes = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".log":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".tsv":  "text/tab-separated-values; charset=utf-8",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".xml":  "application/xml",
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".go":   "text/x-go; charset=utf-8",
	".sh":   "application/x-sh",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// MimeSniffer detects MIME types from a bounded prefix of a file's content, with
// the file extension as a fallback for empty or ambiguous content.
type MimeSniffer struct {
	limit int
}

func NewMimeSniffer(limit int) *MimeSniffer {
	if limit <= 0 {
		limit = DefaultSniffBytes
	}
	return &MimeSniffer{limit: limit}
}

func (s *MimeSniffer) Detect(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fserr.FromOS("mime", path, err)
	}
	if info.IsDir() {
		return DirectoryMIME, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fserr.FromOS("mime", path, err)
	}
	defer file.Close()

	buffer := make([]byte, s.limit)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fserr.FromOS("mime", path, err)
	}

	return DetectBytes(buffer[:n], filepath.Ext(path)), nil
}

// DetectBytes applies the detection policy to an already-read prefix.
func DetectBytes(prefix []byte, extension string) string {
	byExtension := MIMEByExtension(extension)
	if len(prefix) == 0 {
		if byExtension != "" {
			return byExtension
		}
		return FallbackMIME
	}

	detected := mimetype.Detect(prefix)
	if isAmbiguous(detected) && byExtension != "" {
		return byExtension
	}
	return detected.String()
}

// MIMEByExtension returns "" when the extension is unknown.
func MIMEByExtension(extension string) string {
	ext := strings.ToLower(strings.TrimSpace(extension))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if known, ok := extensionTypes[ext]; ok {
		return known
	}
	return mime.TypeByExtension(ext)
}

func isAmbiguous(detected *mimetype.MIME) bool {
	return detected.Is(FallbackMIME) || detected.Is("text/plain")
}

func IsTextMIME(mimeType string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(cleaned, "text/")
}
