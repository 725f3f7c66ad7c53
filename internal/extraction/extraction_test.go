package extraction

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"resume.pdf", FormatPDF},
		{"Resume.PDF", FormatPDF},
		{"cv.docx", FormatDOCX},
		{"posting.html", FormatHTML},
		{"posting.htm", FormatHTML},
		{"notes.md", FormatMarkdown},
		{"/tmp/resume.txt", FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatFromFilename(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromFilename_Unsupported(t *testing.T) {
	_, err := FormatFromFilename("resume.doc")

	var ufe *UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "doc", ufe.Format)
	assert.Contains(t, err.Error(), "resume.doc")
	assert.Contains(t, err.Error(), "pdf")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".DOCX")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)

	f, err = ParseFormat("markdown")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f)

	_, err = ParseFormat("rtf")
	assert.Error(t, err)
}

func TestExtract_Text(t *testing.T) {
	text, err := New().Extract([]byte("\ufeffAda   Lovelace\r\n\r\n\r\n\r\nEngineer\t at Acme\n"), FormatText)

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\n\nEngineer at Acme", text)
}

func TestExtract_Markdown(t *testing.T) {
	text, err := New().Extract([]byte("# Ada\n\n  - Go\n• SQL\n"), FormatMarkdown)

	require.NoError(t, err)
	assert.Equal(t, "# Ada\n\n  - Go\n- SQL", text)
}

func TestExtract_HTML(t *testing.T) {
	page := `<html><head><title>ignored</title><style>p{}</style></head><body>
		<h1>Backend Engineer</h1><script>track()</script>
		<p>Acme builds payments.</p>
		<ul><li>Go</li><li>PostgreSQL</li></ul>
	</body></html>`

	text, err := New().Extract([]byte(page), FormatHTML)

	require.NoError(t, err)
	assert.Contains(t, text, "Backend Engineer")
	assert.Contains(t, text, "Acme builds payments.")
	assert.Contains(t, text, "- Go")
	assert.Contains(t, text, "- PostgreSQL")
	assert.NotContains(t, text, "track()")
	assert.NotContains(t, text, "ignored")
	assert.NotContains(t, text, "Engineer Acme", "blocks are separated by line breaks")
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_DOCX(t *testing.T) {
	data := buildDOCX(t,
		`<w:p><w:r><w:t>Ada Lovelace</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Engineer</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Go</w:t><w:br/><w:t>SQL</w:t></w:r></w:p>`)

	text, err := New().Extract(data, FormatDOCX)

	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nSenior Engineer\nGo\nSQL", text)
}

func TestExtract_DOCXMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = New().Extract(buf.Bytes(), FormatDOCX)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, FormatDOCX, ee.Format)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestExtract_MalformedPDF(t *testing.T) {
	_, err := New().Extract([]byte("%PDF-1.4 definitely not a pdf"), FormatPDF)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, FormatPDF, ee.Format)
}

func TestExtract_TooLarge(t *testing.T) {
	e := &Extractor{MaxBytes: 10}

	_, err := e.Extract([]byte(strings.Repeat("a", 11)), FormatText)

	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestExtract_Empty(t *testing.T) {
	_, err := New().Extract([]byte("  \n\t\n"), FormatText)

	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtract_BinaryText(t *testing.T) {
	_, err := New().Extract([]byte{'a', 0, 'b'}, FormatText)

	var ee *ExtractionError
	assert.True(t, errors.As(err, &ee))
}

func TestExtractReader(t *testing.T) {
	text, err := New().ExtractReader(strings.NewReader("hello   world"), "resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	_, err = (&Extractor{MaxBytes: 4}).ExtractReader(strings.NewReader("hello world"), "resume.txt")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = New().ExtractReader(strings.NewReader("x"), "resume.rtf")
	var ufe *UnsupportedFormatError
	assert.True(t, errors.As(err, &ufe))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.md")
	require.NoError(t, os.WriteFile(path, []byte("## Role\nBuild   things"), 0o644))

	text, err := New().ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Role\nBuild things", text)

	_, err = New().ExtractFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", "   \n  \n  ", ""},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"inner spaces", "Line    with \t multiple    spaces", "Line with multiple spaces"},
		{"blank runs", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"headings kept", "  ## Subtitle\nContent", "## Subtitle\nContent"},
		{"bullet indent kept", "- a\n  - b", "- a\n  - b"},
		{"unicode bullets", "• one\n· two", "- one\n- two"},
		{"special characters", "émojis 🚀  ok", "émojis 🚀 ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanText_Deterministic(t *testing.T) {
	input := "Test   content\n\n\nMore"
	assert.Equal(t, CleanText(input), CleanText(CleanText(input)))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount(" one two\nthree "))
}
