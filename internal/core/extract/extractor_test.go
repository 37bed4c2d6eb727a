package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{name: "txt", filename: "manual.txt", want: true},
		{name: "md", filename: "README.md", want: true},
		{name: "pdf", filename: "catalog.pdf", want: true},
		{name: "大文字拡張子", filename: "MANUAL.TXT", want: true},
		{name: "docx", filename: "report.docx", want: false},
		{name: "拡張子なし", filename: "Makefile", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.filename))
		})
	}
}

func TestExtractPlainText(t *testing.T) {
	path := writeTempFile(t, "doc.txt", "  The warranty period is two years.  \n")

	got, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "The warranty period is two years.", got)
}

func TestExtractMarkdown(t *testing.T) {
	path := writeTempFile(t, "doc.md", "# Returns\n\nAccepted within 30 days.\n")

	got, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "# Returns\n\nAccepted within 30 days.", got)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, "doc.docx", "whatever")

	_, err := NewExtractor().Extract(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestExtractBrokenPDF(t *testing.T) {
	// PDFヘッダを持たないファイルは抽出失敗として扱う
	path := writeTempFile(t, "broken.pdf", "not a pdf at all")

	_, err := NewExtractor().Extract(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}
