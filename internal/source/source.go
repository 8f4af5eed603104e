// Package source resolves the script or notebook to execute.
package source

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/hpungsan/autodocx/internal/errors"
)

// Kind distinguishes plain scripts from notebooks.
type Kind int

const (
	KindScript Kind = iota
	KindNotebook
)

func (k Kind) String() string {
	if k == KindNotebook {
		return "notebook"
	}
	return "script"
}

// CellType is the type of a notebook cell.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// Cell is one notebook cell. Index is its position in the notebook.
type Cell struct {
	Index   int
	Type    CellType
	Content string
}

// Source is a resolved, decoded input file.
type Source struct {
	Path  string // absolute
	Kind  Kind
	Text  string // decoded file contents
	Cells []Cell // notebooks only, in notebook order
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load resolves path into a Source.
// Returns SOURCE_NOT_FOUND for missing files, UNSUPPORTED_SOURCE_TYPE for
// anything that is not .py or .ipynb, and INVALID_NOTEBOOK for notebooks
// that cannot be parsed.
func Load(path string) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.NewInvalidRequest("script_path is required")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewSourceNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	if info.IsDir() {
		return nil, errors.NewSourceNotFound(path)
	}

	ext := strings.ToLower(filepath.Ext(absPath))
	var kind Kind
	switch ext {
	case ".py":
		kind = KindScript
	case ".ipynb":
		kind = KindNotebook
	default:
		return nil, errors.NewUnsupportedSourceType(path, ext)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("reading %s: %w", path, err))
	}

	src := &Source{
		Path: absPath,
		Kind: kind,
		Text: decode(data),
	}

	if kind == KindNotebook {
		cells, err := parseNotebook(bytes.TrimPrefix(data, utf8BOM))
		if err != nil {
			return nil, errors.NewInvalidNotebook(path, err)
		}
		src.Cells = cells
	}

	return src, nil
}

// decode returns data as a string, stripping a UTF-8 BOM.
// Bytes that are not valid UTF-8 are decoded as Latin-1.
func decode(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

// Title is the file name without its extension.
func (s *Source) Title() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dir is the directory containing the source. Execution runs there.
func (s *Source) Dir() string {
	return filepath.Dir(s.Path)
}

// DisplayText is the source shown in the document: the file itself for
// scripts, and the code cells joined by blank lines for notebooks.
func (s *Source) DisplayText() string {
	if s.Kind != KindNotebook {
		return s.Text
	}
	var parts []string
	for _, c := range s.CodeCells() {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}

// CodeCells returns the notebook's code cells in order.
func (s *Source) CodeCells() []Cell {
	var cells []Cell
	for _, c := range s.Cells {
		if c.Type == CellCode {
			cells = append(cells, c)
		}
	}
	return cells
}

// notebook is the subset of nbformat v4 read by auto-docx.
type notebook struct {
	NBFormat int            `json:"nbformat"`
	Cells    []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string        `json:"cell_type"`
	Source   multilineText `json:"source"`
}

// multilineText accepts nbformat's "string or list of strings" encoding.
type multilineText string

func (m *multilineText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multilineText(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("cell source must be a string or list of strings")
	}
	*m = multilineText(strings.Join(lines, ""))
	return nil
}

func parseNotebook(data []byte) ([]Cell, error) {
	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, err
	}
	if nb.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d (need 4 or later)", nb.NBFormat)
	}

	cells := make([]Cell, 0, len(nb.Cells))
	for i, c := range nb.Cells {
		var typ CellType
		switch c.CellType {
		case "code":
			typ = CellCode
		case "markdown":
			typ = CellMarkdown
		default:
			typ = CellRaw
		}
		cells = append(cells, Cell{
			Index:   i,
			Type:    typ,
			Content: string(c.Source),
		})
	}
	return cells, nil
}
