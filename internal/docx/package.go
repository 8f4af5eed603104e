package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

// zipTime is the modification time of every entry, so that identical
// documents are byte-identical.
var zipTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeDoc    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeCore   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relTypeApp    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	relTypeStyles = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTypeImage  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// part is one file in the package.
type part struct {
	name string
	data []byte
}

// writePackage assembles the zip archive. Parts are written in a fixed order.
func writePackage(title, bodyXML string, images []media) ([]byte, error) {
	parts := []part{
		{"[Content_Types].xml", []byte(contentTypes(images))},
		{"_rels/.rels", []byte(rootRels)},
		{"docProps/core.xml", []byte(coreProps(title))},
		{"docProps/app.xml", []byte(appProps)},
		{"word/document.xml", []byte(documentXML(bodyXML))},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/_rels/document.xml.rels", []byte(documentRels(images))},
	}
	for _, m := range images {
		parts = append(parts, part{"word/media/" + m.name, m.data})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: zipTime,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing package: %w", err)
	}
	return buf.Bytes(), nil
}

func contentTypes(images []media) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	seen := map[string]bool{}
	for _, m := range images {
		ext := m.name[strings.LastIndexByte(m.name, '.')+1:]
		if seen[ext] {
			continue
		}
		seen[ext] = true
		fmt.Fprintf(&sb, `<Default Extension="%s" ContentType="image/%s"/>`, ext, ext)
	}
	sb.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	sb.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	sb.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	sb.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	sb.WriteString(`</Types>`)
	return sb.String()
}

var rootRels = xmlHeader +
	`<Relationships xmlns="` + nsRel + `">` +
	`<Relationship Id="rId1" Type="` + relTypeDoc + `" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="` + relTypeCore + `" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="` + relTypeApp + `" Target="docProps/app.xml"/>` +
	`</Relationships>`

func documentRels(images []media) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="` + nsRel + `">`)
	sb.WriteString(`<Relationship Id="rIdStyles" Type="` + relTypeStyles + `" Target="styles.xml"/>`)
	for _, m := range images {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="media/%s"/>`, m.relID, relTypeImage, m.name)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

// coreProps carries the title only. Creation and modification dates are
// left out so output stays deterministic.
func coreProps(title string) string {
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/">` +
		`<dc:title>` + escape(sanitize(title)) + `</dc:title>` +
		`<dc:creator>auto-docx</dc:creator>` +
		`</cp:coreProperties>`
}

const appProps = xmlHeader +
	`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
	`<Application>auto-docx</Application>` +
	`</Properties>`

func documentXML(bodyXML string) string {
	return xmlHeader +
		`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `" xmlns:wp="` + nsWP +
		`" xmlns:a="` + nsA + `" xmlns:pic="` + nsPic + `">` +
		`<w:body>` + bodyXML +
		// Letter, 1in margins.
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr>` +
		`</w:body></w:document>`
}

var stylesXML = xmlHeader +
	`<w:styles xmlns:w="` + nsW + `">` +
	`<w:docDefaults>` +
	`<w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:cs="Calibri"/><w:sz w:val="22"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="264" w:lineRule="auto"/></w:pPr></w:pPrDefault>` +
	`</w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:after="240"/></w:pPr><w:rPr><w:b/><w:sz w:val="56"/></w:rPr></w:style>` +
	headingStyle(1, 32) + headingStyle(2, 28) + headingStyle(3, 26) +
	headingStyle(4, 24) + headingStyle(5, 22) + headingStyle(6, 22) +
	`<w:style w:type="paragraph" w:styleId="Code"><w:name w:val="Code"/><w:basedOn w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr>` +
	`<w:rPr><w:rFonts w:ascii="` + monospaceFont + `" w:hAnsi="` + monospaceFont + `" w:cs="` + monospaceFont + `"/>` +
	fmt.Sprintf(`<w:sz w:val="%d"/>`, codeFontHalfPoints) + `</w:rPr></w:style>` +
	`</w:styles>`

func headingStyle(level, halfPoints int) string {
	return fmt.Sprintf(`<w:style w:type="paragraph" w:styleId="Heading%[1]d">`+
		`<w:name w:val="heading %[1]d"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>`+
		`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="%[2]d"/></w:pPr>`+
		`<w:rPr><w:b/><w:sz w:val="%[3]d"/></w:rPr></w:style>`, level, level-1, halfPoints)
}
