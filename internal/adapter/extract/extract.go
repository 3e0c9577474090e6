// Package extract converts uploaded files into plain UTF-8 text. Plain-text
// formats are handled in process; PDF and DOCX extraction is delegated to an
// external extraction service when one is configured.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// plainFormats are the extensions the in-process extractor accepts.
var plainFormats = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".text":     true,
}

// PlainText extracts text from plain-text files, fixing up common non-UTF-8
// encodings (Latin-1 fallback, UTF-8 BOM).
type PlainText struct{}

func NewPlainText() *PlainText {
	return &PlainText{}
}

func (e *PlainText) Supports(format string) bool {
	return plainFormats[strings.ToLower(format)]
}

func (e *PlainText) Extract(data []byte, format string) (string, error) {
	if !e.Supports(format) {
		return "", fmt.Errorf("unsupported file type %q: %w", format, domain.ErrExtraction)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty: %w", domain.ErrExtraction)
	}

	data = stripBOM(data)

	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = decodeLatin1(data)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from document: %w", domain.ErrExtraction)
	}
	return text, nil
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// decodeLatin1 maps each byte to its code point. Every byte sequence is
// valid Latin-1, so this is the terminal fallback.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
