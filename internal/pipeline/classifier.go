package pipeline

import (
	"path/filepath"
	"sort"
	"strings"
)

// Category groups file formats that share an extraction strategy and chunking
// configuration.
type Category string

const (
	CategoryDocuments     Category = "documents"
	CategorySpreadsheets  Category = "spreadsheets"
	CategoryPresentations Category = "presentations"
	CategoryStructured    Category = "structured"
	CategoryImages        Category = "images"
)

// formatTable maps lower-case file extensions to their category.
var formatTable = map[string]Category{
	".pdf":  CategoryDocuments,
	".txt":  CategoryDocuments,
	".doc":  CategoryDocuments,
	".docx": CategoryDocuments,

	".xlsx": CategorySpreadsheets,
	".xls":  CategorySpreadsheets,
	".csv":  CategorySpreadsheets,

	".pptx": CategoryPresentations,
	".ppt":  CategoryPresentations,

	".json": CategoryStructured,
	".md":   CategoryStructured,
	".html": CategoryStructured,

	".png":  CategoryImages,
	".jpg":  CategoryImages,
	".jpeg": CategoryImages,
	".gif":  CategoryImages,
	".bmp":  CategoryImages,
}

// Classify maps a filename to its document category based on the extension,
// case-insensitively. Directory components are ignored.
func Classify(filename string) (Category, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	category, ok := formatTable[ext]
	if !ok {
		return "", &UnsupportedFormatError{Ext: ext}
	}
	return category, nil
}

// SupportedFormats returns the supported extensions grouped by category, with
// extensions sorted for stable output.
func SupportedFormats() map[Category][]string {
	formats := make(map[Category][]string)
	for ext, category := range formatTable {
		formats[category] = append(formats[category], ext)
	}
	for category := range formats {
		sort.Strings(formats[category])
	}
	return formats
}

// Categories returns all known categories.
func Categories() []Category {
	return []Category{
		CategoryDocuments,
		CategorySpreadsheets,
		CategoryPresentations,
		CategoryStructured,
		CategoryImages,
	}
}
