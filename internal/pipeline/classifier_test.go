package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyByExtension(t *testing.T) {
	cases := map[string]Category{
		"report.pdf":       CategoryDocuments,
		"notes.TXT":        CategoryDocuments,
		"legacy.doc":       CategoryDocuments,
		"modern.docx":      CategoryDocuments,
		"numbers.xlsx":     CategorySpreadsheets,
		"old.xls":          CategorySpreadsheets,
		"export.csv":       CategorySpreadsheets,
		"deck.pptx":        CategoryPresentations,
		"legacy.PPT":       CategoryPresentations,
		"config.json":      CategoryStructured,
		"README.md":        CategoryStructured,
		"page.html":        CategoryStructured,
		"chart.png":        CategoryImages,
		"photo.JPG":        CategoryImages,
		"photo.jpeg":       CategoryImages,
		"anim.gif":         CategoryImages,
		"scan.bmp":         CategoryImages,
		"/tmp/a/b/doc.pdf": CategoryDocuments,
	}

	for name, want := range cases {
		got, err := Classify(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestClassifyUnsupported(t *testing.T) {
	for _, name := range []string{"archive.zip", "noext", "video.mp4", ".pdf.bak"} {
		_, err := Classify(name)
		require.Error(t, err, name)
		assert.True(t, IsUnsupportedFormat(err), name)
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()

	assert.ElementsMatch(t, []string{".pdf", ".txt", ".doc", ".docx"}, formats[CategoryDocuments])
	assert.ElementsMatch(t, []string{".xlsx", ".xls", ".csv"}, formats[CategorySpreadsheets])
	assert.ElementsMatch(t, []string{".pptx", ".ppt"}, formats[CategoryPresentations])
	assert.ElementsMatch(t, []string{".json", ".md", ".html"}, formats[CategoryStructured])
	assert.ElementsMatch(t, []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}, formats[CategoryImages])
}
