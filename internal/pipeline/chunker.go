package pipeline

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kart-io/agent-studio/internal/pkg/textutil"
	"github.com/kart-io/agent-studio/internal/vectorstore"
)

const (
	// defaultChunkSize applies to every category except presentations.
	defaultChunkSize = 2048
	// presentationChunkSize is larger because slide decks concentrate their
	// content into few, dense units.
	presentationChunkSize = 4096
	// overlapRatio determines the chunk overlap as a fraction of chunk size.
	overlapRatio = 0.1
	// maxChunkSize caps adaptive growth at the content field capacity.
	maxChunkSize = 65535

	paragraphSeparator = "\n\n"
)

// SizeTable holds the per-category chunk sizes for one pipeline instance.
// Sizes grow when index builds reject oversized records, so access is guarded
// for concurrent ingestions.
type SizeTable struct {
	mu    sync.RWMutex
	sizes map[Category]int
}

// NewSizeTable creates a table with the default per-category sizes.
func NewSizeTable() *SizeTable {
	sizes := make(map[Category]int)
	for _, category := range Categories() {
		sizes[category] = defaultChunkSize
	}
	sizes[CategoryPresentations] = presentationChunkSize
	return &SizeTable{sizes: sizes}
}

// Get returns the current chunk size for the category.
func (t *SizeTable) Get(category Category) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if size, ok := t.sizes[category]; ok {
		return size
	}
	return defaultChunkSize
}

// Set overrides the chunk size for the category.
func (t *SizeTable) Set(category Category, size int) {
	if size <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sizes[category] = size
}

// Grow enlarges the category's chunk size in response to an oversized-record
// build failure. When the failure message carries the rejected payload length
// the new size is ceil(1.2x) of that length; otherwise the current size is
// doubled. The update is atomic and the new size is returned.
func (t *SizeTable) Grow(category Category, cause error) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.sizes[category]
	if !ok {
		current = defaultChunkSize
	}

	next := current * 2
	if required := vectorstore.ParseOversizedLength(cause); required > 0 {
		next = int(math.Ceil(float64(required) * 1.2))
	}
	// Growth must be monotonic or the retry loop would never converge.
	if next <= current {
		next = current * 2
	}
	if next > maxChunkSize {
		next = maxChunkSize
	}

	t.sizes[category] = next
	return next
}

// SplitText splits a unit of text into chunks of at most size runes,
// preferring paragraph boundaries. Consecutive chunks share a tail overlap of
// size/10 runes; paragraphs longer than the chunk size are hard-split at
// fixed rune windows. The size bound wins over the overlap: when a paragraph
// nearly fills a chunk on its own, the previous chunk's tail no longer fits
// in front of it and is dropped, so those two chunks share no overlap.
func SplitText(text string, size int) []string {
	if size <= 0 {
		return nil
	}
	overlap := int(float64(size) * overlapRatio)

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	carry := ""
	current := ""

	emit := func() {
		chunks = append(chunks, current)
		carry = tailRunes(current, overlap)
		current = ""
	}

	for _, paragraph := range paragraphs {
		paraLen := utf8.RuneCountInString(paragraph)

		if paraLen > size {
			if current != "" {
				emit()
			}
			pieces := textutil.SplitIntoChunks(paragraph, size, overlap)
			chunks = append(chunks, pieces...)
			carry = tailRunes(pieces[len(pieces)-1], overlap)
			current = ""
			continue
		}

		candidate := join(current, paragraph)
		if current == "" {
			// Start the chunk from the previous chunk's tail when it fits.
			if carry != "" && utf8.RuneCountInString(join(carry, paragraph)) <= size {
				candidate = join(carry, paragraph)
			}
		}

		if utf8.RuneCountInString(candidate) <= size {
			current = candidate
			continue
		}

		emit()
		if carry != "" && utf8.RuneCountInString(join(carry, paragraph)) <= size {
			current = join(carry, paragraph)
		} else {
			current = paragraph
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, paragraphSeparator)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + paragraphSeparator + b
}
