package ingestion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	pageNumberRe = regexp.MustCompile(`^\d+$`)
)

const minContentLength = 50

// ExtractPDF reads a PDF and returns one record per content-rich page,
// keeping the page number so answers can cite it.
func ExtractPDF(path string) ([]Record, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	records := make([]Record, 0, reader.NumPage())
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}

		cleaned := cleanText(text)
		if !contentRich(cleaned) {
			continue
		}

		records = append(records, Record{
			Content: cleaned,
			Page:    strconv.Itoa(pageNum),
		})
	}

	return records, nil
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// contentRich filters out pages that are only headers, tables of contents,
// or bare page numbers.
func contentRich(text string) bool {
	if len(text) < minContentLength {
		return false
	}

	lower := strings.ToLower(text)
	if pageNumberRe.MatchString(strings.TrimSpace(text)) {
		return false
	}
	if strings.Contains(lower, "table of contents") {
		return false
	}
	return true
}
