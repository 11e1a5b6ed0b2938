// Package ingestion builds the knowledge base: it turns source documents
// into embedded, page-referenced chunks in Postgres. It runs offline; the
// serving path only ever reads its output.
package ingestion

import (
	"encoding/json"
	"fmt"
	"os"
)

// Record is one ingested document entry: a span of cleaned text with its
// heading and the page it came from. PDF extraction produces these, and
// pre-extracted corpora can ship them directly as JSON arrays.
type Record struct {
	Content string `json:"content"`
	Header  string `json:"header"`
	Page    string `json:"page"`
}

// LoadRecordFile reads a JSON array of records from disk. Page values may be
// numbers or strings in the source files.
func LoadRecordFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record file: %w", err)
	}

	var raw []struct {
		Content string          `json:"content"`
		Header  *string         `json:"header"`
		Page    json.RawMessage `json:"page"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode record file %s: %w", path, err)
	}

	records := make([]Record, 0, len(raw))
	for _, entry := range raw {
		record := Record{Content: entry.Content}
		if entry.Header != nil {
			record.Header = *entry.Header
		}
		record.Page = decodePage(entry.Page)
		records = append(records, record)
	}
	return records, nil
}

func decodePage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}
