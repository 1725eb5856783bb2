package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes text in a single encoded image (PNG, JPEG).
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TesseractEngine runs Tesseract over the configured languages,
// e.g. "deu+eng" for German letters with English fragments.
type TesseractEngine struct {
	languages []string
}

func NewTesseractEngine(languages string) *TesseractEngine {
	return &TesseractEngine{languages: strings.Split(languages, "+")}
}

func (t *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}

	return text, nil
}

// rasterizePDF renders every page as a PNG at the given DPI.
func rasterizePDF(data []byte, dpi float64) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rasterization: %w", err)
	}
	defer doc.Close()

	var pages [][]byte
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", n+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
