package library

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenIndexesExistingPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	lib, err := Open(dir, nil)
	require.NoError(t, err)

	docs := lib.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, int64(4), docs[0].Size)
}

func TestOpenCreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "pdfs")

	lib, err := Open(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, lib.Documents())
	assert.DirExists(t, dir)
}

func TestAddStoresDocument(t *testing.T) {
	dir := t.TempDir()
	lib, err := Open(dir, nil)
	require.NoError(t, err)

	doc, err := lib.Add("../escape/report.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", doc.Name)
	assert.Equal(t, int64(8), doc.Size)
	assert.FileExists(t, filepath.Join(dir, "report.pdf"))
	assert.Len(t, lib.Documents(), 1)
}

func TestAddRejectsInvalidFiles(t *testing.T) {
	lib, err := Open(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = lib.Add("notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotPDF)

	_, err = lib.Add("empty.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	assert.Empty(t, lib.Documents())
}

func TestRelevantPrefersMatchingNames(t *testing.T) {
	lib, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	for _, name := range []string{"gardening-guide.pdf", "tax-report-2023.pdf", "recipes.pdf"} {
		_, err := lib.Add(name, strings.NewReader("%PDF"))
		require.NoError(t, err)
	}

	got := lib.Relevant("What does the tax report say?", 2)

	require.Len(t, got, 2)
	assert.Equal(t, "tax-report-2023.pdf", got[0].Name)
	assert.Empty(t, lib.Relevant("anything", 0))
}
