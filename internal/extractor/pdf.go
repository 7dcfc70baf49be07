package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPDF pulls plain text from every page of a PDF, joined by newlines.
// Pages that fail to decode are logged and skipped; an entirely empty result
// is an error (likely a scanned document, which needs OCR and is out of scope).
func ExtractPDF(data []byte, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var (
		sb      strings.Builder
		pages   = r.NumPage()
		skipped int
	)
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			logger.Warn("extract.pdf.page_skipped", "page", i, "reason", "null page")
			skipped++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("extract.pdf.page_skipped", "page", i, "reason", err.Error())
			skipped++
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("no text could be extracted from pdf (%d pages, %d skipped)", pages, skipped)
	}

	logger.Info("extract.pdf.ok", "pages", pages, "skipped", skipped, "chars", len(out))
	return out, nil
}
