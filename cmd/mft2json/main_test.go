package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const records = `{"header":{"record_number":5},"attributes":[{"header":{"type_code":"StandardInformation"},"data":{"created":"2020-01-01T00:00:00Z","modified":"2020-01-02T00:00:00Z"}},{"header":{"type_code":"FileName"},"data":{"name":"a.txt"}}]}
`

func writeMFT(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mft := filepath.Join(dir, "MFT")
	require.NoError(t, os.WriteFile(mft, nil, 0644))
	require.NoError(t, os.WriteFile(mft+".jsonl", []byte(records), 0644))
	require.NoError(t, os.WriteFile(mft+".csv", []byte("FullPath\n[root]/a.txt\n"), 0644))
	return mft
}

func TestExportDefaultOutput(t *testing.T) {
	mft := writeMFT(t)
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	require.NoError(t, app.Run([]string{"mft2json", "--decoder", "sidecar", mft}))

	data, err := os.ReadFile(mft + ".json")
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(data, &docs))
	assert.Len(t, docs, 1)
	assert.Contains(t, out.String(), "Converted.")
}

func TestExportTimelineToOutputFile(t *testing.T) {
	mft := writeMFT(t)
	output := filepath.Join(t.TempDir(), "timeline.json")
	app := newApp()
	app.Writer = &bytes.Buffer{}
	require.NoError(t, app.Run([]string{"mft2json", "--decoder", "sidecar", "--timeline", "-o", output, mft}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(data, &docs))
	require.Len(t, docs, 2)
	for _, doc := range docs {
		file := doc["file"].(map[string]any)
		assert.Equal(t, "a.txt", file["name"])
		assert.Equal(t, "[root]/a.txt", file["path"])
		assert.Contains(t, doc, "@timestamp")
	}
}
