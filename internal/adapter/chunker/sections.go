package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"docqa/internal/domain"
)

var (
	numberedHeading = regexp.MustCompile(`^\d+[.)]\s+\S`)
	romanHeading    = regexp.MustCompile(`^[IVX]+\.\s+[A-Z]`)
)

// DetectSections finds section headings in cleaned document text and returns
// the sections in document order. A heading is a short standalone line:
// numbered ("2. Methods"), roman ("II. Methods"), ALL CAPS, or title case
// without terminal punctuation. Text before the first heading belongs to no
// section. Offsets are rune offsets into the input.
func DetectSections(text string) []domain.Section {
	var sections []domain.Section

	lines := strings.Split(text, "\n")
	offset := 0
	var current *domain.Section
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimSpace(strings.Join(body, "\n"))
			if current.Body != "" {
				sections = append(sections, *current)
			}
		}
		body = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			current = &domain.Section{Title: trimmed, Start: offset}
		} else if current != nil {
			body = append(body, line)
		}
		offset += len([]rune(line)) + 1
	}
	flush()

	return sections
}

func isHeading(line string) bool {
	if line == "" || len([]rune(line)) > 80 {
		return false
	}
	if numberedHeading.MatchString(line) || romanHeading.MatchString(line) {
		return true
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ":") || strings.HasSuffix(line, ";") || strings.HasSuffix(line, ",") {
		return false
	}
	if isAllCaps(line) {
		return true
	}
	return isTitleCase(line)
}

func isAllCaps(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter && len([]rune(line)) < 50
}

func isTitleCase(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 5 {
		return false
	}
	capped := 0
	for _, w := range words {
		r := []rune(w)[0]
		if unicode.IsUpper(r) {
			capped++
		} else if unicode.IsDigit(r) || !unicode.IsLetter(r) {
			return false
		}
	}
	// Most words capitalized and the first one always.
	first := []rune(words[0])[0]
	return unicode.IsUpper(first) && capped*10 >= len(words)*7
}

// sectionTitleAt returns the title of the section containing the given rune
// offset, or "" when the offset precedes every section.
func sectionTitleAt(sections []domain.Section, offset int) string {
	title := ""
	for _, s := range sections {
		if s.Start <= offset {
			title = s.Title
		} else {
			break
		}
	}
	return title
}
