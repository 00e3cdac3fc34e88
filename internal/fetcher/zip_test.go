package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractZIP_ShapefileSet(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"tl_2023_us_county.shp": "shp",
		"tl_2023_us_county.dbf": "dbf",
		"tl_2023_us_county.shx": "shx",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	assert.Len(t, extracted, 3)

	shp, err := FindByExt(extracted, ".SHP")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "tl_2023_us_county.shp"), shp)

	data, err := os.ReadFile(shp)
	require.NoError(t, err)
	assert.Equal(t, "shp", string(data))
}

func TestFindByExt_Missing(t *testing.T) {
	_, err := FindByExt([]string{"a.dbf", "b.prj"}, ".shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .shp file")
}

func TestExtractZIP_ZipSlipPrevention(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"../../../etc/passwd": "malicious",
	})

	_, err := ExtractZIP(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZIP_WithSubdirectory(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"county/tl.shp": "shp",
	})

	destDir := t.TempDir()
	extracted, err := ExtractZIP(zipPath, destDir)
	require.NoError(t, err)
	require.Len(t, extracted, 1)
	assert.Equal(t, filepath.Join(destDir, "county", "tl.shp"), extracted[0])
}

func TestExtractZIP_InvalidArchive(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))

	_, err := ExtractZIP(bad, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}
