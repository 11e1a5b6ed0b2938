package ingestion_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herdwise/livestock-agent/ingestion"
)

func TestLoadRecordFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cattle.json")
	payload := `[
		{"content": "Foot and mouth disease spreads quickly.", "header": "FMD", "page": 12},
		{"content": "Vaccinate calves at eight weeks.", "header": null, "page": "13"},
		{"content": "General husbandry notes.", "header": "Husbandry", "page": null}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	records, err := ingestion.LoadRecordFile(path)
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.Equal(t, "FMD", records[0].Header)
	require.Equal(t, "12", records[0].Page, "numeric pages are normalized to strings")

	require.Empty(t, records[1].Header)
	require.Equal(t, "13", records[1].Page)

	require.Empty(t, records[2].Page)
}

func TestLoadRecordFileRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o600))

	_, err := ingestion.LoadRecordFile(path)
	require.Error(t, err)
}

func TestLoadRecordFileMissing(t *testing.T) {
	_, err := ingestion.LoadRecordFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
