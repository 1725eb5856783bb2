package extractor

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractNativePDF concatenates the embedded text of every page,
// trimmed, with a blank line between non-empty pages. Returns "" when
// the document carries no usable text layer (scanned PDFs, malformed
// files) so the caller can fall back to OCR.
func extractNativePDF(data []byte) string {
	reader := bytes.NewReader(data)

	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return ""
	}

	var parts []string
	numPages := pdfReader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep going; other pages may still have a text layer.
			continue
		}

		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n")
}
