package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeZipFile(t *testing.T, name string, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for entry, content := range entries {
		f, err := w.Create(entry)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return writeTempFile(t, name, buf.Bytes())
}

func TestExtractFileRejectsUnsupportedFormat(t *testing.T) {
	_, err := ExtractFile(context.Background(), "notes.xyz")

	require.Error(t, err)
	assert.True(t, IsUnsupportedFormat(err))
}

func TestExtractFileRequiresContent(t *testing.T) {
	path := writeTempFile(t, "blank.txt", []byte("   \n\t  \n"))

	_, err := ExtractFile(context.Background(), path)

	require.Error(t, err)
	var extractionErr *ExtractionError
	assert.ErrorAs(t, err, &extractionErr)
}

func TestDocumentExtractorPlainText(t *testing.T) {
	path := writeTempFile(t, "report.txt", []byte("quarterly numbers\n\nall good"))

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "quarterly numbers\n\nall good", units[0].Text)
}

func TestDocumentExtractorDocx(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>second </w:t></w:r><w:r><w:t>paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeZipFile(t, "report.docx", map[string]string{
		"word/document.xml": documentXML,
		"[Content_Types].xml": `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
	})

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "first paragraph")
	assert.Contains(t, units[0].Text, "second paragraph")
}

func TestSpreadsheetExtractorCSV(t *testing.T) {
	path := writeTempFile(t, "data.csv", []byte("name,score\nalice,10\nbob,7\n"))

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "alice\t10")
	assert.Contains(t, units[0].Text, "bob\t7")
}

func TestSpreadsheetExtractorUnitPerSheet(t *testing.T) {
	workbook := excelize.NewFile()
	require.NoError(t, workbook.SetCellValue("Sheet1", "A1", "revenue"))
	for _, sheet := range []string{"Costs", "Margins"} {
		_, err := workbook.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, workbook.SetCellValue(sheet, "A1", sheet+" data"))
	}
	path := filepath.Join(t.TempDir(), "finance.xlsx")
	require.NoError(t, workbook.SaveAs(path))
	require.NoError(t, workbook.Close())

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.True(t, strings.HasPrefix(units[0].Text, "Sheet: Sheet1\n"))
	assert.Contains(t, units[1].Text, "Sheet: Costs")
	assert.Contains(t, units[2].Text, "Margins data")
}

func TestPresentationExtractorSlidesAndNotes(t *testing.T) {
	slideXML := func(text string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
       xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	path := writeZipFile(t, "deck.pptx", map[string]string{
		"ppt/slides/slide1.xml":           slideXML("intro"),
		"ppt/slides/slide2.xml":           slideXML("roadmap"),
		"ppt/notesSlides/notesSlide2.xml": slideXML("mention the schedule"),
	})

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	text := units[0].Text
	assert.Contains(t, text, "Slide 1:")
	assert.Contains(t, text, "Content:\nintro")
	assert.Contains(t, text, "Slide 2:")
	assert.Contains(t, text, "Notes:\nmention the schedule")
	assert.Less(t, strings.Index(text, "Slide 1:"), strings.Index(text, "Slide 2:"))
}

func TestImageExtractorEmbedsThumbnail(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for x := 0; x < 640; x++ {
		for y := 0; y < 480; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := writeTempFile(t, "chart.png", buf.Bytes())

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.NotEmpty(t, units[0].Text)

	images, ok := units[0].Metadata["images"].([]any)
	require.True(t, ok, "metadata must carry an images list")
	require.Len(t, images, 1)
	entry, ok := images[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "image", entry["type"])

	raw, err := base64.StdEncoding.DecodeString(entry["data"].(string))
	require.NoError(t, err)
	thumb, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	bounds := thumb.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 300)
	assert.LessOrEqual(t, bounds.Dy(), 300)
}

func TestStructuredExtractorHTML(t *testing.T) {
	html := `<html><head><script>var hidden = 1;</script></head>
<body><h1>Launch plan</h1><p>Ship in March.</p><style>.x{}</style></body></html>`
	path := writeTempFile(t, "plan.html", []byte(html))

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "Launch plan")
	assert.Contains(t, units[0].Text, "Ship in March.")
	assert.NotContains(t, units[0].Text, "hidden")
}

func TestStructuredExtractorMarkdownKeepsStructure(t *testing.T) {
	source := "# Title\n\n- item one\n- item two\n"
	path := writeTempFile(t, "readme.md", []byte(source))

	units, err := ExtractFile(context.Background(), path)

	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, source, units[0].Text)
}
