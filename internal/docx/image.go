package docx

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/hpungsan/autodocx/internal/capture"
)

const (
	emuPerInch  = 914400
	emuPerPixel = 9525 // at 96 DPI

	// maxImageWidth is the widest an image is rendered: 5.8in, inside the
	// 6.5in text column of a Letter page with 1in margins.
	maxImageWidth int64 = 58 * emuPerInch / 10
)

// media is an image part embedded in the package.
type media struct {
	relID string
	name  string // file name under word/media/
	data  []byte
}

// imageExtent returns the rendered size of an image in EMU: its natural
// size at 96 DPI, scaled down proportionally to maxImageWidth.
func imageExtent(img capture.Image) (cx, cy int64, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("decoding %s image: %w", img.Format, err)
	}
	if !formatMatches(img.Format, format) {
		return 0, 0, fmt.Errorf("image data is %s, expected %s", format, img.Format)
	}

	w, h := int64(cfg.Width), int64(cfg.Height)
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("image has no area (%dx%d)", w, h)
	}

	cx, cy = w*emuPerPixel, h*emuPerPixel
	if cx > maxImageWidth {
		cy = cy * maxImageWidth / cx
		cx = maxImageWidth
	}
	return cx, max(cy, 1), nil
}

func formatMatches(want capture.ImageFormat, decoded string) bool {
	switch want {
	case capture.FormatPNG:
		return decoded == "png"
	case capture.FormatJPEG:
		return decoded == "jpeg"
	case capture.FormatGIF:
		return decoded == "gif"
	}
	return false
}

// drawingXML renders an inline picture referencing relID. Drawing ids are
// xsd:unsignedInt.
func drawingXML(id uint32, relID, name string, cx, cy int64) string {
	return fmt.Sprintf(`<w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[3]d" cy="%[4]d"/>`+
		`<wp:effectExtent l="0" t="0" r="0" b="0"/>`+
		`<wp:docPr id="%[1]d" name="Picture %[1]d"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic>`+
		`<pic:nvPicPr><pic:cNvPr id="%[1]d" name="%[5]s"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[2]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[3]d" cy="%[4]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`+
		`</pic:pic>`+
		`</a:graphicData></a:graphic>`+
		`</wp:inline>`+
		`</w:drawing></w:r>`, id, relID, cx, cy, escape(name))
}
