package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StructuredExtractor handles .json, .md and .html. JSON and Markdown keep
// their textual structure untouched; HTML is reduced to its visible text.
type StructuredExtractor struct{}

var blankLinesRE = regexp.MustCompile(`\n{3,}`)

func (e *StructuredExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.ToLower(filepath.Ext(path)) == ".html" {
		return e.extractHTML(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []Unit{{Text: string(data)}}, nil
}

func (e *StructuredExtractor) extractHTML(path string) ([]Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	var lines []string
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, text)
		}
	})

	text := strings.Join(lines, "\n")
	if text == "" {
		// Bare documents without a body still carry text nodes.
		text = strings.TrimSpace(doc.Text())
	}
	return []Unit{{Text: blankLinesRE.ReplaceAllString(text, "\n\n")}}, nil
}
