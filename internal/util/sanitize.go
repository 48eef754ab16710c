package util

import (
	"regexp"
	"strings"
	"unicode"

	"go-fileops/pkg/fserr"
)

const maxNameRunes = 200

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

var windowsReservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename turns an arbitrary base name into one that is safe on every
// supported platform. Hidden names keep their leading dot.
func SanitizeFilename(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fserr.New(fserr.InvalidPath, "sanitize", name, "filename cannot be empty")
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || unicode.Is(unicode.Cf, char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(invalidFilenameChars.ReplaceAllString(builder.String(), "_"))
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", fserr.New(fserr.InvalidPath, "sanitize", name, "filename is invalid after sanitization")
	}

	runes := []rune(cleaned)
	if len(runes) > maxNameRunes {
		cleaned = string(runes[:maxNameRunes])
	}

	stem := cleaned
	if idx := strings.Index(cleaned, "."); idx > 0 {
		stem = cleaned[:idx]
	}
	if _, reserved := windowsReservedNames[strings.ToUpper(stem)]; reserved {
		cleaned = "_" + cleaned
	}

	return cleaned, nil
}

// StoreName builds the name an entry gets inside a trash store: a unique prefix
// followed by the sanitized original base name.
func StoreName(prefix string, base string) string {
	cleaned, err := SanitizeFilename(base)
	if err != nil {
		cleaned = "entry"
	}
	return prefix + "_" + cleaned
}
