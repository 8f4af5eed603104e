// Package docx renders a capture into a Word (.docx) document.
//
// The package is written directly as OOXML parts in a zip archive. Output is
// deterministic: identical inputs produce identical bytes.
package docx

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/hpungsan/autodocx/internal/capture"
	"github.com/hpungsan/autodocx/internal/errors"
)

const (
	monospaceFont      = "Courier New"
	codeFontHalfPoints = 20 // 10pt

	failureColor = "C00000"

	emptySourceText = "(Empty file)"
	noOutputText    = "(No output)"
	badImageText    = "(Failed to load image)"
)

// Header is the document's title block.
type Header struct {
	Title  string
	RollNo string // omitted from the document when empty
}

// Build renders the document and returns the .docx bytes.
//
// The source section is included only when includeSource is set. Items are
// rendered in capture order.
func Build(h Header, sourceText string, c *capture.Capture, includeSource bool) ([]byte, error) {
	b := &body{}

	b.para(paraProps{style: "Title", align: "center"}, runXML(h.Title, runProps{}))
	if roll := strings.TrimSpace(h.RollNo); roll != "" {
		b.para(paraProps{align: "center"}, runXML("Roll No: "+roll, runProps{}))
	}
	b.para(paraProps{})

	if includeSource {
		b.heading(1, "Source Code")
		if strings.TrimSpace(sourceText) == "" {
			b.para(paraProps{}, runXML(emptySourceText, runProps{italic: true}))
		} else {
			b.code(sourceText)
		}
	}

	b.heading(1, "Output")
	rendered := 0
	if c != nil {
		for _, item := range c.Items {
			if b.item(item) {
				rendered++
			}
		}
	}
	if rendered == 0 {
		b.para(paraProps{}, runXML(noOutputText, runProps{italic: true}))
	}
	if c != nil && c.Failure != nil {
		b.para(paraProps{}, runXML(failureText(c.Failure), runProps{bold: true, color: failureColor}))
	}

	return writePackage(h.Title, b.String(), b.media)
}

// failureText is the status line shown after the output of a failed run.
func failureText(f *capture.Failure) string {
	if f.Kind == errors.ErrExecutionTimeout {
		return capitalize(f.Message)
	}
	return "Execution failed: " + f.Message
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// body accumulates the children of w:body and the media they reference.
type body struct {
	sb      strings.Builder
	media   []media
	drawing int
}

func (b *body) String() string {
	return b.sb.String()
}

func (b *body) para(pp paraProps, runs ...string) {
	b.sb.WriteString("<w:p>")
	b.sb.WriteString(pp.xml())
	for _, r := range runs {
		b.sb.WriteString(r)
	}
	b.sb.WriteString("</w:p>")
}

func (b *body) heading(level int, text string) {
	level = min(max(level, 1), 6)
	b.para(paraProps{style: fmt.Sprintf("Heading%d", level)}, runXML(text, runProps{}))
}

// code writes text as a single fixed-width paragraph in the Code style.
func (b *body) code(text string) {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	b.para(paraProps{style: "Code"}, runXML(text, runProps{mono: true}))
}

// item renders one capture item and reports whether anything was written.
func (b *body) item(item capture.Item) bool {
	switch it := item.(type) {
	case capture.Text:
		if strings.TrimSpace(it.Content) == "" {
			return false
		}
		b.para(paraProps{}, runXML(it.Content, runProps{mono: true}))
		return true
	case capture.Image:
		b.image(it)
		return true
	case capture.Markdown:
		return b.markdown(it.Content)
	}
	return false
}

func (b *body) image(img capture.Image) {
	cx, cy, err := imageExtent(img)
	if err != nil {
		b.para(paraProps{}, runXML(badImageText, runProps{italic: true}))
		return
	}

	id, err := safecast.Conv[uint32](b.drawing + 1)
	if err != nil {
		b.para(paraProps{}, runXML(badImageText, runProps{italic: true}))
		return
	}
	b.drawing++
	m := media{
		relID: fmt.Sprintf("rIdImg%d", b.drawing),
		name:  fmt.Sprintf("image%d.%s", b.drawing, img.Format),
		data:  img.Data,
	}
	b.media = append(b.media, m)
	b.para(paraProps{align: "center"}, drawingXML(id, m.relID, m.name, cx, cy))
}
