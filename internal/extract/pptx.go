package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// slidePath matches ppt/slides/slideN.xml and captures N.
var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// drawingTextTag matches <a:t>text</a:t> with any attributes.
var drawingTextTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX reads slide XML parts in slide order and keeps their text runs.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PPTX: not a zip: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var buf strings.Builder
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", s.file.Name, err)
		}
		var xml bytes.Buffer
		_, err = xml.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", s.file.Name, err)
		}

		var parts []string
		for _, m := range drawingTextTag.FindAllStringSubmatch(xml.String(), -1) {
			if t := strings.TrimSpace(html.UnescapeString(m[1])); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "Slide %d: %s\n", s.num, strings.Join(parts, " "))
	}
	return buf.String(), nil
}
