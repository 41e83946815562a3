package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readArchive opens the produced buffer and returns entry name -> contents.
func readArchive(t *testing.T, buf []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	require.NoError(t, err)

	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries[f.Name] = string(data)
	}
	return entries
}

func TestBuilder_AddAndFinalize_RoundTrip(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.Add("t1_Thesis_One.pdf", []byte("%PDF-1.4 one")))
	require.NoError(t, b.Add("t2_Thesis_Two.pdf", []byte("%PDF-1.4 two")))
	assert.Equal(t, 2, b.Len())

	buf, err := b.Finalize()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, []byte("PK\x03\x04")))

	entries := readArchive(t, buf)
	assert.Equal(t, "%PDF-1.4 one", entries["t1_Thesis_One.pdf"])
	assert.Equal(t, "%PDF-1.4 two", entries["t2_Thesis_Two.pdf"])
}

func TestBuilder_DuplicateNamesGetSuffix(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.Add("report.pdf", []byte("first")))
	require.NoError(t, b.Add("report.pdf", []byte("second")))
	require.NoError(t, b.Add("report.pdf", []byte("third")))

	buf, err := b.Finalize()
	require.NoError(t, err)

	entries := readArchive(t, buf)
	assert.Equal(t, "first", entries["report.pdf"])
	assert.Equal(t, "second", entries["report_2.pdf"])
	assert.Equal(t, "third", entries["report_3.pdf"])
}

func TestBuilder_AddValidation(t *testing.T) {
	b := NewBuilder()

	err := b.Add("", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry name is required")

	// Empty payloads are allowed; the export loop filters them upstream
	require.NoError(t, b.Add("empty.pdf", nil))
}

func TestBuilder_Finalize_EmptyArchive(t *testing.T) {
	b := NewBuilder()

	buf, err := b.Finalize()
	assert.Nil(t, buf)
	assert.ErrorIs(t, err, ErrEmptyArchive)
}

func TestBuilder_Finalize_OnlyOnce(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("a.pdf", []byte("a")))

	_, err := b.Finalize()
	require.NoError(t, err)

	_, err = b.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finalized")

	err = b.Add("b.pdf", []byte("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already finalized")
}

func TestBuilder_AddErrorLog(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.AddErrorLog("t9", "Thesis: Nine?", "download link not available"))

	buf, err := b.Finalize()
	require.NoError(t, err)

	entries := readArchive(t, buf)
	body, ok := entries["error_log_t9_Thesis__Nine_.txt"]
	require.True(t, ok, "error log entry missing, got %v", entries)
	assert.Contains(t, body, "record: Thesis: Nine? (t9)")
	assert.Contains(t, body, "error: download link not available")
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Thesis_One", SanitizeName("Thesis One"))
	assert.Equal(t, "a_b_c", SanitizeName("a/b\\c"))
	assert.Equal(t, "título", SanitizeName("título"), "letters outside ASCII survive")
	assert.Equal(t, "", SanitizeName(""))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "t1_My_Thesis.pdf", EntryName("t1", "My Thesis"))
}
