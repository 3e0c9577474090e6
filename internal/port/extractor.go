package port

// Extractor converts uploaded file bytes into plain UTF-8 text.
// Rich formats (PDF, DOCX) are handled by an external extraction service;
// the in-process adapter covers plain-text formats.
type Extractor interface {
	// Extract returns the plain text for the file contents. The format is
	// the lowercased file extension including the dot, e.g. ".txt".
	Extract(data []byte, format string) (string, error)

	// Supports reports whether the extractor handles the format.
	Supports(format string) bool
}
