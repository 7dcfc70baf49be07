package extractor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/StarHydra/docstruct/constants"
)

// ExtractFile reads a document from disk and returns its raw text.
// Format is decided by extension; unsupported extensions are an error.
func ExtractFile(path string, logger *slog.Logger) (string, error) {
	format := constants.MapExtToFormat(filepath.Ext(path))
	if format == "" {
		return "", fmt.Errorf("unsupported format %q, expected one of %v", filepath.Ext(path), constants.InputFormats)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input file: %w", err)
	}

	switch format {
	case "PDF":
		return ExtractPDF(data, logger)
	case "TXT":
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("input file is empty")
		}
		return text, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}
