package ingest

import (
	"bytes"
	"errors"
	"path"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned for content that is not text.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Page is the text of one page. Number is 0 for documents without page breaks.
type Page struct {
	Number int
	Text   string
}

// Extract converts fetched bytes into pages. Form feeds separate pages, which
// is what pdftotext emits; pages are numbered from 1 and blank pages are
// dropped without renumbering the rest. Markdown front matter and code fence
// markers are removed.
func Extract(source string, data []byte) ([]Page, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.Join(ErrUnsupportedFormat, errors.New("pdf must be converted to text first, e.g. pdftotext -layout"))
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, errors.Join(ErrUnsupportedFormat, errors.New("content is not utf-8 text"))
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	if isMarkdown(source) {
		text = stripMarkdown(text)
	}

	parts := strings.Split(text, "\f")
	if len(parts) == 1 {
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		return []Page{{Number: 0, Text: text}}, nil
	}

	var pages []Page
	for i, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages, nil
}

func isMarkdown(source string) bool {
	if i := strings.IndexAny(source, "?#"); i >= 0 && isURL(source) {
		source = source[:i]
	}
	switch strings.ToLower(path.Ext(source)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

// stripMarkdown drops a leading front matter block and the ``` / ~~~ fence
// lines around code, keeping the code itself.
func stripMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "---" {
		for i := 1; i < len(lines); i++ {
			if t := strings.TrimSpace(lines[i]); t == "---" || t == "..." {
				lines = lines[i+1:]
				break
			}
		}
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
