package docx

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	listIndent  = 360 // twips per nesting level
	quoteIndent = 720

	linkColor = "0563C1"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table, extension.TaskList),
).Parser()

// markdown renders a notebook markdown cell. It reports whether any block
// was written.
func (b *body) markdown(content string) bool {
	src := []byte(content)
	doc := markdownParser.Parse(text.NewReader(src))
	m := &mdWriter{body: b, src: src}
	before := b.sb.Len()
	m.blocks(doc, blockCtx{})
	return b.sb.Len() > before
}

// blockCtx carries the indentation of the enclosing lists and quotes.
type blockCtx struct {
	indent int
	// marker is written before the first paragraph of a list item.
	marker *string
}

type mdWriter struct {
	*body
	src []byte
}

func (m *mdWriter) blocks(parent ast.Node, ctx blockCtx) {
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		m.block(n, ctx)
		// Only the first block of a list item carries its marker.
		ctx.marker = nil
	}
}

func (m *mdWriter) block(n ast.Node, ctx blockCtx) {
	switch v := n.(type) {
	case *ast.Heading:
		m.para(paraProps{style: "Heading" + strconv.Itoa(min(max(v.Level, 1), 6))}, m.inlines(v, runProps{}))

	case *ast.Paragraph, *ast.TextBlock:
		m.textPara(ctx, m.inlines(v, runProps{}))

	case *ast.List:
		m.list(v, ctx)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		m.codeBlock(m.lines(n), ctx)

	case *ast.Blockquote:
		ctx.indent += quoteIndent
		m.blocks(v, ctx)

	case *ast.ThematicBreak:
		m.para(paraProps{border: true, indent: ctx.indent})

	case *ast.HTMLBlock:
		raw := m.lines(v)
		if v.HasClosure() {
			raw += string(v.ClosureLine.Value(m.src))
		}
		if strings.TrimSpace(raw) != "" {
			m.textPara(ctx, runXML(strings.TrimRight(raw, "\n"), runProps{}))
		}

	case *extast.Table:
		m.table(v, ctx)

	default:
		if n.HasChildren() {
			m.blocks(n, ctx)
		}
	}
}

// textPara writes a body paragraph, prefixed with the pending list marker.
func (m *mdWriter) textPara(ctx blockCtx, runs string) {
	if runs == "" && ctx.marker == nil {
		return
	}
	pp := paraProps{indent: ctx.indent}
	if ctx.marker != nil {
		pp.hanging = listIndent
		runs = runXML(*ctx.marker, runProps{}) + tabRun + runs
	}
	m.para(pp, runs)
}

func (m *mdWriter) codeBlock(code string, ctx blockCtx) {
	code = strings.TrimRight(code, "\n")
	if ctx.marker != nil {
		m.textPara(ctx, "")
		ctx.marker = nil
	}
	m.para(paraProps{style: "Code", indent: ctx.indent}, runXML(code, runProps{mono: true}))
}

func (m *mdWriter) list(l *ast.List, ctx blockCtx) {
	num := l.Start
	if num == 0 {
		num = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "•"
		if l.IsOrdered() {
			marker = strconv.Itoa(num) + string(l.Marker)
			num++
		}
		if checked, ok := taskState(item); ok {
			if checked {
				marker += " [x]"
			} else {
				marker += " [ ]"
			}
		}

		itemCtx := blockCtx{indent: ctx.indent + listIndent, marker: &marker}
		if !item.HasChildren() {
			m.textPara(itemCtx, "")
			continue
		}
		m.blocks(item, itemCtx)
	}
}

// taskState reports the checkbox of a task list item, if it has one.
func taskState(item ast.Node) (checked, ok bool) {
	first := item.FirstChild()
	if first == nil {
		return false, false
	}
	box, ok := first.FirstChild().(*extast.TaskCheckBox)
	if !ok {
		return false, false
	}
	return box.IsChecked, true
}

// table degrades to one paragraph per row with tab-separated cells. The
// header row is bold.
func (m *mdWriter) table(t *extast.Table, ctx blockCtx) {
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		rp := runProps{}
		if _, ok := row.(*extast.TableHeader); ok {
			rp.bold = true
		}
		var sb strings.Builder
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if cell != row.FirstChild() {
				sb.WriteString(tabRun)
			}
			sb.WriteString(m.inlines(cell, rp))
		}
		m.para(paraProps{indent: ctx.indent}, sb.String())
	}
}

// inlines renders the inline children of n as runs.
func (m *mdWriter) inlines(n ast.Node, rp runProps) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			sb.WriteString(runXML(string(v.Segment.Value(m.src)), rp))
			switch {
			case v.HardLineBreak():
				sb.WriteString(breakRun)
			case v.SoftLineBreak():
				sb.WriteString(runXML(" ", rp))
			}

		case *ast.String:
			sb.WriteString(runXML(string(v.Value), rp))

		case *ast.Emphasis:
			inner := rp
			if v.Level >= 2 {
				inner.bold = true
			} else {
				inner.italic = true
			}
			sb.WriteString(m.inlines(v, inner))

		case *extast.Strikethrough:
			inner := rp
			inner.strike = true
			sb.WriteString(m.inlines(v, inner))

		case *ast.CodeSpan:
			inner := rp
			inner.mono = true
			sb.WriteString(m.inlines(v, inner))

		case *ast.Link:
			sb.WriteString(m.link(m.inlines(v, linkProps(rp)), m.plain(v), string(v.Destination), rp))

		case *ast.AutoLink:
			sb.WriteString(runXML(string(v.Label(m.src)), linkProps(rp)))

		case *ast.Image:
			alt := m.plain(v)
			if alt == "" {
				alt = "image"
			}
			sb.WriteString(runXML("["+alt+"]", runProps{italic: true}))

		case *ast.RawHTML:
			for i := 0; i < v.Segments.Len(); i++ {
				seg := v.Segments.At(i)
				sb.WriteString(runXML(string(seg.Value(m.src)), rp))
			}

		case *extast.TaskCheckBox:
			// Rendered as part of the list marker.

		default:
			sb.WriteString(m.inlines(c, rp))
		}
	}
	return sb.String()
}

// link renders a link's text, followed by its destination when the two differ.
func (m *mdWriter) link(runs, label, dest string, rp runProps) string {
	if dest == "" || dest == label {
		return runs
	}
	return runs + runXML(" ("+dest+")", rp)
}

func linkProps(rp runProps) runProps {
	rp.underline = true
	rp.color = linkColor
	return rp
}

// plain returns the text content of n without formatting.
func (m *mdWriter) plain(n ast.Node) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(m.src))
		case *ast.String:
			sb.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// lines joins the raw source lines of a block node.
func (m *mdWriter) lines(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(m.src))
	}
	return sb.String()
}
