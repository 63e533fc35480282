package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocumentExtractor handles plain documents: .txt, .doc, .docx and .pdf.
type DocumentExtractor struct{}

func (e *DocumentExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return e.extractPDF(path)
	case ".docx":
		return e.extractDocx(path)
	default:
		// .txt and legacy .doc are read as plain text.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Unit{{Text: string(data)}}, nil
	}
}

func (e *DocumentExtractor) extractPDF(path string) ([]Unit, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return []Unit{{Text: buf.String()}}, nil
}

// extractDocx pulls paragraph text out of word/document.xml. Runs within a
// paragraph are concatenated; paragraphs become lines.
func (e *DocumentExtractor) extractDocx(path string) ([]Unit, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		text, err := wordprocessingText(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return []Unit{{Text: text}}, nil
	}
	return nil, fmt.Errorf("docx has no word/document.xml")
}

func wordprocessingText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
