package pipeline

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PresentationExtractor handles .pptx and .ppt decks. A deck becomes one unit
// with per-slide sections carrying shape text and speaker notes.
type PresentationExtractor struct{}

var (
	slidePathRE = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	notesPathRE = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)
)

func (e *PresentationExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open presentation: %w", err)
	}
	defer archive.Close()

	slides := map[int]string{}
	notes := map[int]string{}

	for _, file := range archive.File {
		var target map[int]string
		var match []string
		if match = slidePathRE.FindStringSubmatch(file.Name); match != nil {
			target = slides
		} else if match = notesPathRE.FindStringSubmatch(file.Name); match != nil {
			target = notes
		} else {
			continue
		}

		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", file.Name, err)
		}
		text, err := drawingText(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file.Name, err)
		}
		target[number] = text
	}

	if len(slides) == 0 {
		return nil, fmt.Errorf("presentation has no slides")
	}

	numbers := make([]int, 0, len(slides))
	for number := range slides {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	sections := make([]string, 0, len(numbers))
	for _, number := range numbers {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Slide %d:\n", number)
		if content := strings.TrimSpace(slides[number]); content != "" {
			sb.WriteString("\nContent:\n")
			sb.WriteString(content)
		}
		if note := strings.TrimSpace(notes[number]); note != "" {
			sb.WriteString("\nNotes:\n")
			sb.WriteString(note)
		}
		sections = append(sections, sb.String())
	}

	return []Unit{{Text: strings.Join(sections, "\n\n")}}, nil
}

// drawingText extracts the a:t runs of a DrawingML part, one line per a:p
// paragraph.
func drawingText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
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
