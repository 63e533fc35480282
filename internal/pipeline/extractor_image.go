package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// imageMaxDimension bounds both axes of the stored thumbnail.
	imageMaxDimension = 300
	imageJPEGQuality  = 85

	imagePromptText = "Please analyze this image and answer any questions about its content."
)

// ImageExtractor downscales an image and stows it, base64 encoded, in unit
// metadata so the answer assembler can hand it to a multimodal model. The
// unit text is a generic instruction; the model does the actual reading.
type ImageExtractor struct{}

func (e *ImageExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	resized := imaging.Fit(img, imageMaxDimension, imageMaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(imageJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return []Unit{{
		Text: imagePromptText,
		Metadata: map[string]any{
			"images": []any{
				map[string]any{
					"type": "image",
					"data": base64.StdEncoding.EncodeToString(buf.Bytes()),
				},
			},
		},
	}}, nil
}
