// Package extract reads document text for the requirements pipeline. It
// handles plain text and markdown; binary formats are out of scope and
// rejected with a typed error.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MinDocumentLen is the smallest document worth processing. Anything shorter
// cannot describe requirements.
const MinDocumentLen = 50

// ErrUnsupportedFormat is returned for file types the extractor does not
// handle.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrDocumentTooShort is returned when the document has too little text to
// process.
var ErrDocumentTooShort = errors.New("document text too short")

// supportedExtensions maps handled file extensions.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// Supported reports whether the file's extension is one the extractor
// handles.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// FromFile reads and validates document text from a file.
func FromFile(path string) (string, error) {
	if !Supported(path) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", path, err)
	}

	return FromText(string(data))
}

// FromText validates raw document text, normalizing line endings.
func FromText(raw string) (string, error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.TrimSpace(text)

	if len(text) < MinDocumentLen {
		return "", fmt.Errorf("%w: %d chars, need at least %d", ErrDocumentTooShort, len(text), MinDocumentLen)
	}

	return text, nil
}
