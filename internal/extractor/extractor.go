package extractor

import (
	"context"
	"strings"

	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

// Method tags how the text was obtained.
type Method string

const (
	MethodNative Method = "native"
	MethodOCR    Method = "ocr"
	MethodNone   Method = "none"
)

// Sentinels returned in place of text. Extraction never fails; callers
// distinguish "ran but found nothing" from "failed" by text + method.
const (
	NoTextSentinel      = "(No text extracted)"
	UnsupportedSentinel = "(Unsupported file type)"
	OCRUnavailable      = "(OCR not available: install Tesseract)"
)

const rasterDPI = 200

// Extractor turns stored file bytes plus a declared mimetype into plain
// text and a provenance tag. A nil OCR engine means optical recognition
// is unavailable in this runtime.
type Extractor struct {
	ocr    OCREngine
	logger *utils.Logger
}

func New(ocr OCREngine, logger *utils.Logger) *Extractor {
	return &Extractor{ocr: ocr, logger: logger}
}

// Extract dispatches by mimetype. It is a pure function of its inputs:
// no side effects, safe to retry, and it never returns an error.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimetype string) (string, Method) {
	mt := strings.ToLower(mimetype)

	switch {
	case strings.Contains(mt, "pdf"):
		return e.extractPDF(ctx, data)
	case strings.HasPrefix(mt, "image/"):
		return e.extractImage(ctx, data)
	default:
		return UnsupportedSentinel, MethodNone
	}
}

// extractPDF tries native per-page text first and falls back to
// rasterize + OCR for scanned documents.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, Method) {
	text := extractNativePDF(data)
	if text != "" {
		return text, MethodNative
	}

	if e.ocr != nil {
		pages, err := rasterizePDF(data, rasterDPI)
		if err != nil {
			e.logger.Warn("Failed to rasterize PDF for OCR", "error", err)
			return NoTextSentinel, MethodNative
		}

		var parts []string
		for i, page := range pages {
			pageText, err := e.ocr.Recognize(ctx, page)
			if err != nil {
				e.logger.Warn("OCR failed for page", "page", i+1, "error", err)
				continue
			}
			if pageText = strings.TrimSpace(pageText); pageText != "" {
				parts = append(parts, pageText)
			}
		}

		if len(parts) > 0 {
			return strings.Join(parts, "\n\n"), MethodOCR
		}
	}

	return NoTextSentinel, MethodNative
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, Method) {
	if e.ocr == nil {
		return OCRUnavailable, MethodNone
	}

	text, err := e.ocr.Recognize(ctx, data)
	if err != nil {
		e.logger.Warn("OCR failed for image", "error", err)
		return NoTextSentinel, MethodOCR
	}

	if text = strings.TrimSpace(text); text == "" {
		return NoTextSentinel, MethodOCR
	}

	return text, MethodOCR
}
