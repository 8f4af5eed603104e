package docx

import (
	"fmt"
	"strings"
)

// paraProps are the paragraph properties auto-docx uses.
type paraProps struct {
	style   string // w:pStyle
	align   string // w:jc: "center", ...
	indent  int    // left indent in twips
	hanging int    // hanging indent in twips
	border  bool   // bottom border (thematic break)
}

func (p paraProps) xml() string {
	var sb strings.Builder
	if p.style != "" {
		fmt.Fprintf(&sb, `<w:pStyle w:val="%s"/>`, p.style)
	}
	if p.border {
		sb.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr>`)
	}
	if p.indent > 0 || p.hanging > 0 {
		fmt.Fprintf(&sb, `<w:ind w:left="%d"`, p.indent)
		if p.hanging > 0 {
			fmt.Fprintf(&sb, ` w:hanging="%d"`, p.hanging)
		}
		sb.WriteString(`/>`)
	}
	if p.align != "" {
		fmt.Fprintf(&sb, `<w:jc w:val="%s"/>`, p.align)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "<w:pPr>" + sb.String() + "</w:pPr>"
}

// runProps are the character properties auto-docx uses.
type runProps struct {
	mono      bool
	bold      bool
	italic    bool
	strike    bool
	underline bool
	color     string // hex RGB
}

func (r runProps) xml() string {
	var sb strings.Builder
	if r.mono {
		fmt.Fprintf(&sb, `<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/>`, monospaceFont)
	}
	if r.bold {
		sb.WriteString(`<w:b/>`)
	}
	if r.italic {
		sb.WriteString(`<w:i/>`)
	}
	if r.strike {
		sb.WriteString(`<w:strike/>`)
	}
	if r.color != "" {
		fmt.Fprintf(&sb, `<w:color w:val="%s"/>`, r.color)
	}
	if r.mono {
		fmt.Fprintf(&sb, `<w:sz w:val="%d"/>`, codeFontHalfPoints)
	}
	if r.underline {
		sb.WriteString(`<w:u w:val="single"/>`)
	}
	if sb.Len() == 0 {
		return ""
	}
	return "<w:rPr>" + sb.String() + "</w:rPr>"
}

// runXML renders text as one run. Newlines become w:br and tabs w:tab.
func runXML(text string, rp runProps) string {
	text = strings.ReplaceAll(sanitize(text), "\r", "")
	if text == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<w:r>")
	sb.WriteString(rp.xml())
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			sb.WriteString("<w:br/>")
		}
		for j, part := range strings.Split(line, "\t") {
			if j > 0 {
				sb.WriteString("<w:tab/>")
			}
			if part != "" {
				sb.WriteString(`<w:t xml:space="preserve">`)
				sb.WriteString(escape(part))
				sb.WriteString(`</w:t>`)
			}
		}
	}
	sb.WriteString("</w:r>")
	return sb.String()
}

const (
	breakRun = "<w:r><w:br/></w:r>"
	tabRun   = "<w:r><w:tab/></w:r>"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escape(s string) string {
	return xmlEscaper.Replace(s)
}

// sanitize drops characters that are not allowed in XML 1.0, along with
// C1 control characters that Word refuses to open.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		case r >= 0x7f && r <= 0x9f:
			return -1
		case r == 0xFFFE || r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}
