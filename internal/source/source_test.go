package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/autodocx/internal/errors"
)

const sampleNotebook = `{
 "nbformat": 4,
 "nbformat_minor": 5,
 "metadata": {},
 "cells": [
  {"cell_type": "markdown", "metadata": {}, "source": ["# Title\n", "Intro text"]},
  {"cell_type": "code", "metadata": {}, "execution_count": null, "outputs": [], "source": "x = 1\nprint(x)"},
  {"cell_type": "raw", "metadata": {}, "source": "ignored"},
  {"cell_type": "markdown", "metadata": {}, "source": "Done"},
  {"cell_type": "code", "metadata": {}, "execution_count": null, "outputs": [], "source": ["print(x + 1)"]}
 ]
}`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestLoad_Script(t *testing.T) {
	path := writeFile(t, "hello.py", []byte("print('hi')\n"))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindScript, src.Kind)
	assert.Equal(t, "print('hi')\n", src.Text)
	assert.Equal(t, "hello", src.Title())
	assert.Equal(t, filepath.Dir(path), src.Dir())
	assert.Equal(t, src.Text, src.DisplayText())
	assert.Empty(t, src.Cells)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does_not_exist.py"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceNotFound))
}

func TestLoad_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pkg.py")
	require.NoError(t, os.Mkdir(dir, 0755))

	_, err := Load(dir)
	assert.True(t, errors.Is(err, errors.ErrSourceNotFound))
}

func TestLoad_UnsupportedType(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("hello"))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedSourceType))
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("  ")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestLoad_UppercaseExtension(t *testing.T) {
	path := writeFile(t, "Upper.PY", []byte("pass\n"))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindScript, src.Kind)
	assert.Equal(t, "Upper", src.Title())
}

func TestLoad_Latin1Fallback(t *testing.T) {
	// "café" in Latin-1: 0xE9 is not valid UTF-8 on its own.
	path := writeFile(t, "latin.py", []byte("print('caf\xe9')\n"))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "print('café')\n", src.Text)
}

func TestLoad_StripsBOM(t *testing.T) {
	path := writeFile(t, "bom.py", []byte("\xEF\xBB\xBFprint(1)\n"))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "print(1)\n", src.Text)
}

func TestLoad_Notebook(t *testing.T) {
	path := writeFile(t, "analysis.ipynb", []byte(sampleNotebook))

	src, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, KindNotebook, src.Kind)
	require.Len(t, src.Cells, 5)

	assert.Equal(t, CellMarkdown, src.Cells[0].Type)
	assert.Equal(t, "# Title\nIntro text", src.Cells[0].Content)
	assert.Equal(t, CellCode, src.Cells[1].Type)
	assert.Equal(t, CellRaw, src.Cells[2].Type)
	assert.Equal(t, 4, src.Cells[4].Index)

	code := src.CodeCells()
	require.Len(t, code, 2)
	assert.Equal(t, 1, code[0].Index)
	assert.Equal(t, 4, code[1].Index)

	assert.Equal(t, "x = 1\nprint(x)\n\nprint(x + 1)", src.DisplayText())
}

func TestLoad_InvalidNotebook(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{nope"},
		{"old nbformat", `{"nbformat": 3, "worksheets": []}`},
		{"bad source type", `{"nbformat": 4, "cells": [{"cell_type": "code", "source": 12}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.ipynb", []byte(tt.data))
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidNotebook))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "script", KindScript.String())
	assert.Equal(t, "notebook", KindNotebook.String())
}
