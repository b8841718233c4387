package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// paragraphTag matches one <w:p ...>...</w:p> element, attributes included.
var paragraphTag = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)

// runTextTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
var runTextTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX reads word/document.xml through the docx package and keeps the
// text runs, one line per paragraph.
func extractDOCX(content []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	defer r.Close()

	body := r.Editable().GetContent()

	var b strings.Builder
	for _, para := range paragraphTag.FindAllString(body, -1) {
		var line strings.Builder
		for _, run := range runTextTag.FindAllStringSubmatch(para, -1) {
			line.WriteString(run[1])
		}
		text := strings.TrimSpace(html.UnescapeString(line.String()))
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
