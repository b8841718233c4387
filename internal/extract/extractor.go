// Package extract turns uploaded document bytes into plain text.
package extract

import (
	"context"
	"strings"
)

// SupportedFileTypes lists the file types Extract understands, without leading dots.
var SupportedFileTypes = []string{"pdf", "docx", "xlsx", "pptx", "txt", "md", "csv"}

// Extractor extracts plain text from document bytes.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of content interpreted as fileType
// ("pdf", ".docx", ...). Unknown types yield an empty string and no error;
// callers treat blank output as an extraction failure.
func (e *Extractor) Extract(ctx context.Context, content []byte, fileType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		text string
		err  error
	)
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(fileType)), ".") {
	case "pdf":
		text, err = extractPDF(content)
	case "docx":
		text, err = extractDOCX(content)
	case "xlsx":
		text, err = extractExcel(content)
	case "pptx":
		text, err = extractPPTX(content)
	case "md", "markdown":
		text, err = extractMarkdown(content)
	case "txt", "csv":
		text, err = extractPlain(content)
	default:
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
