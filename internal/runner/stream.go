package runner

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/hpungsan/autodocx/internal/capture"
)

// markerByte starts a candidate control line. Control lines written by the
// bootstrap have the form 0x1E markerTag KIND ":" payload "\n"; anything else
// following a 0x1E is program output and is passed through unchanged.
const (
	markerByte = 0x1e
	markerTag  = "AUTODOCX:"
)

const (
	markerImage = "IMG"
	markerCell  = "CELL"
	markerError = "ERR"
)

// preambleCell holds output produced before the first notebook cell (or all
// output for plain scripts).
const preambleCell = -1

// segment is the output attributed to one notebook cell.
type segment struct {
	cell  int
	items []capture.Item
}

// collector turns the merged stdout/stderr stream of the bootstrap into
// ordered capture items. Program output is echoed to echo as it arrives,
// with control lines filtered out.
type collector struct {
	mu       sync.Mutex
	echo     io.Writer
	text     bytes.Buffer
	marker   bytes.Buffer
	inMarker bool
	segments []segment
	traced   bool
	lastCell int
}

func newCollector(echo io.Writer) *collector {
	if echo == nil {
		echo = io.Discard
	}
	return &collector{
		echo:     echo,
		segments: []segment{{cell: preambleCell}},
		lastCell: preambleCell,
	}
}

// Write implements io.Writer. It may be called with arbitrary chunk
// boundaries, including ones that split a control line.
func (c *collector) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		if c.inMarker {
			i := bytes.IndexByte(p, '\n')
			if i < 0 {
				c.marker.Write(p)
				break
			}
			c.marker.Write(p[:i])
			p = p[i+1:]
			c.inMarker = false
			c.handleMarker(c.marker.String())
			c.marker.Reset()
			continue
		}

		i := bytes.IndexByte(p, markerByte)
		if i < 0 {
			c.writeText(p)
			break
		}
		c.writeText(p[:i])
		p = p[i+1:]
		c.inMarker = true
	}
	return n, nil
}

func (c *collector) writeText(p []byte) {
	if len(p) == 0 {
		return
	}
	c.text.Write(p)
	_, _ = c.echo.Write(p)
}

func (c *collector) handleMarker(line string) {
	rest, ok := strings.CutPrefix(line, markerTag)
	if !ok {
		c.writeText([]byte(string(rune(markerByte)) + line + "\n"))
		return
	}
	kind, payload, _ := strings.Cut(strings.TrimRight(rest, "\r"), ":")
	switch kind {
	case markerImage:
		c.flushText()
		if img, ok := readImage(payload); ok {
			c.add(img)
		}
	case markerCell:
		c.flushText()
		idx, err := strconv.Atoi(payload)
		if err != nil {
			return
		}
		c.segments = append(c.segments, segment{cell: idx})
		c.lastCell = idx
	case markerError:
		c.flushText()
		trace, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return
		}
		c.traced = true
		if s := normalizeText(string(trace)); s != "" {
			c.add(capture.Text{Content: s})
		}
	default:
		c.writeText([]byte(string(rune(markerByte)) + line + "\n"))
	}
}

func (c *collector) add(item capture.Item) {
	last := &c.segments[len(c.segments)-1]
	last.items = append(last.items, item)
}

func (c *collector) flushText() {
	s := normalizeText(c.text.String())
	c.text.Reset()
	if s != "" {
		c.add(capture.Text{Content: s})
	}
}

// finish flushes pending text and returns the collected segments.
// A control line cut off by process termination is dropped; an unterminated
// 0x1E line that is not a control line is kept as text.
func (c *collector) finish() []segment {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inMarker && !strings.HasPrefix(c.marker.String(), markerTag) {
		c.writeText(append([]byte{markerByte}, c.marker.Bytes()...))
	}
	c.flushText()
	c.inMarker = false
	c.marker.Reset()
	return c.segments
}

// hasTrace reports whether the bootstrap reported a traceback.
func (c *collector) hasTrace() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traced
}

// startedCell returns the index of the last notebook cell that began executing.
func (c *collector) startedCell() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCell
}

// normalizeText converts CRLF to LF and drops trailing newlines.
// Whitespace-only output yields "".
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, "\n")
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func readImage(path string) (capture.Image, bool) {
	format, ok := capture.FormatFromExt(filepath.Ext(path))
	if !ok {
		return capture.Image{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return capture.Image{}, false
	}
	return capture.Image{Data: data, Format: format}, true
}
