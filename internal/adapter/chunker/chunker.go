package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docqa/internal/domain"
)

// TextChunker splits cleaned document text into overlapping chunks. Sizes
// are in runes. Chunk boundaries prefer a sentence or line break past the
// midpoint of the window so passages do not cut words mid-sentence.
// Chunking is deterministic: the same text and parameters always produce
// the same chunk sequence.
type TextChunker struct {
	size    int
	overlap int
}

// NewTextChunker creates a chunker with the given window size and overlap,
// both in runes. Overlap must be smaller than size.
func NewTextChunker(size, overlap int) *TextChunker {
	return &TextChunker{size: size, overlap: overlap}
}

// Chunk splits text into ordered chunks with rune offsets into text.
// Text shorter than the window yields exactly one chunk. Trailing text is
// never dropped; the last chunk may be smaller than the window. A chunk
// overlaps at most its immediate neighbors: when the requested overlap
// would reach further back, the stride is clamped.
func (c *TextChunker) Chunk(docID, text string) ([]domain.Chunk, error) {
	if c.overlap >= c.size || c.size <= 0 || c.overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than size %d: %w", c.overlap, c.size, domain.ErrInvalidInput)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, fmt.Errorf("chunker: empty text: %w", domain.ErrInvalidInput)
	}

	sections := DetectSections(text)

	var chunks []domain.Chunk
	start := 0
	prevEnd := 0 // end of the chunk before the current one
	for {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastBreak(runes[start:end]); cut > c.size/2 {
			end = start + cut
		}

		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:    chunkID(docID, seq),
			DocID: docID,
			Seq:   seq,
			Start: start,
			End:   end,
			// Attribute by midpoint so a chunk that begins in the
			// overlap tail of the previous section is titled by the
			// section it mostly covers.
			SectionTitle: sectionTitleAt(sections, (start+end)/2),
			Text:         string(runes[start:end]),
		})

		if end == len(runes) {
			return chunks, nil
		}

		next := end - c.overlap
		if next < prevEnd {
			// Overlap reaches at most the immediate neighbor: the next
			// chunk never starts before the end of the chunk two back.
			next = prevEnd
		}
		if next <= start {
			next = start + 1
		}
		prevEnd = end
		start = next
	}
}

// lastBreak returns the rune index just past the last sentence or line break
// in the window, or 0 when the window has none.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			return i + 1
		}
		if window[i] == '.' || window[i] == '!' || window[i] == '?' {
			// Break after the punctuation and any following space.
			if i+1 < len(window) && window[i+1] == ' ' {
				return i + 2
			}
			return i + 1
		}
	}
	return 0
}

func chunkID(docID string, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", docID, seq)))
	return hex.EncodeToString(sum[:8])
}
