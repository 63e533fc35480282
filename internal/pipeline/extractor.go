package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Unit is one normalized piece of content extracted from a document. Images
// ride along in Metadata so they survive chunking and indexing.
type Unit struct {
	Text     string
	Metadata map[string]any
}

// Extractor converts a file of one format category into text units.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]Unit, error)
}

// ForCategory returns the extractor responsible for the category.
func ForCategory(category Category) (Extractor, error) {
	switch category {
	case CategoryDocuments:
		return &DocumentExtractor{}, nil
	case CategorySpreadsheets:
		return &SpreadsheetExtractor{}, nil
	case CategoryPresentations:
		return &PresentationExtractor{}, nil
	case CategoryStructured:
		return &StructuredExtractor{}, nil
	case CategoryImages:
		return &ImageExtractor{}, nil
	default:
		return nil, fmt.Errorf("no extractor for category %q", category)
	}
}

// ExtractFile classifies the file and runs the matching extractor. Units with
// no usable text are dropped; a document that yields nothing at all is an
// extraction failure so no empty collection gets built from it.
func ExtractFile(ctx context.Context, path string) ([]Unit, error) {
	category, err := Classify(path)
	if err != nil {
		return nil, err
	}

	extractor, err := ForCategory(category)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	units, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	kept := units[:0]
	for _, unit := range units {
		if strings.TrimSpace(unit.Text) != "" {
			kept = append(kept, unit)
		}
	}
	if len(kept) == 0 {
		return nil, &ExtractionError{Path: path, Err: fmt.Errorf("no text content extracted")}
	}
	return kept, nil
}
