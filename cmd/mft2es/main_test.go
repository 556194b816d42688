package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/cdtdelta/mft2es/internal/database"
)

const records = `{"header":{"record_number":0},"attributes":[{"header":{"type_code":"FileName"},"data":{"name":"$MFT"}}]}
{"header":{"record_number":1},"attributes":[{"header":{"type_code":"FileName"},"data":{"name":"$MFTMirr"}}]}
`

const paths = "FullPath\n[root]/$MFT\n[root]/$MFTMirr\n"

func writeEvidence(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "evidence")
	require.NoError(t, os.Mkdir(dir, 0755))
	mft := filepath.Join(dir, "$MFT")
	require.NoError(t, os.WriteFile(mft, nil, 0644))
	require.NoError(t, os.WriteFile(mft+".jsonl", []byte(records), 0644))
	require.NoError(t, os.WriteFile(mft+".csv", []byte(paths), 0644))
	return dir
}

func TestImportIntoSQLite(t *testing.T) {
	dir := writeEvidence(t)
	dbPath := filepath.Join(t.TempDir(), "mft.db")

	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	args := []string{"mft2es", "--backend", "sqlite", "--dsn", dbPath, "--decoder", "sidecar", "--tags", "case7", dir}
	require.NoError(t, app.Run(args))
	assert.Contains(t, out.String(), "indexed")

	store, err := database.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()
	count, err := store.CountDocuments(context.Background(), "mft2es")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestQuietSuppressesSummary(t *testing.T) {
	dir := writeEvidence(t)
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	args := []string{"mft2es", "-q", "--backend", "sqlite", "--dsn", filepath.Join(t.TempDir(), "q.db"), "--decoder", "sidecar", dir}
	require.NoError(t, app.Run(args))
	assert.Empty(t, out.String())
}

func TestRequiresInput(t *testing.T) {
	app := newApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run([]string{"mft2es", "--backend", "sqlite", "--dsn", "x.db"})
	assert.Error(t, err)
}

func TestInvalidStoreConfig(t *testing.T) {
	dir := writeEvidence(t)
	app := newApp()
	err := app.Run([]string{"mft2es", "--backend", "sqlite", "--decoder", "sidecar", dir})
	assert.ErrorContains(t, err, "invalid configuration")

	err = newApp().Run([]string{"mft2es", "--scheme", "ftp", dir})
	assert.ErrorContains(t, err, "unsupported scheme")
}
