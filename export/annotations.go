package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/wudi/pdfedit/annotation"
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/richtext"
)

// embedAnnotations draws every annotation whose page survived the
// structural edits. A failing item is logged and skipped; one broken
// annotation never aborts the export.
func (c *Compiler) embedAnnotations(doc *document.Document, annots []annotation.Annotation, mapping map[int]int) {
	for _, a := range annots {
		idx, ok := mapping[a.PageNumber()]
		if !ok {
			// Anchored to a deleted page.
			continue
		}
		if idx < 0 || idx >= doc.PageCount() {
			continue
		}
		if err := c.drawAnnotation(doc, doc.Page(idx), a); err != nil {
			c.log().Warn("skipping annotation",
				observability.String("id", a.AnnotationID()),
				observability.String("kind", string(a.Kind())),
				observability.Error("error", err))
		}
	}
}

func (c *Compiler) drawAnnotation(doc *document.Document, page *document.Page, a annotation.Annotation) error {
	switch v := a.(type) {
	case *annotation.Highlight:
		drawHighlight(page, v)
	case *annotation.Redaction:
		drawRedaction(page, v)
	case *annotation.Pen:
		drawPen(page, v)
	case *annotation.Shape:
		drawShape(page, v)
	case *annotation.Text:
		drawTextBox(page, v)
	case *annotation.Note:
		drawNote(page, v)
	case *annotation.Signature:
		return drawSignature(doc, page, v)
	default:
		return fmt.Errorf("unknown annotation kind %q", a.Kind())
	}
	return nil
}

func drawHighlight(page *document.Page, a *annotation.Highlight) {
	_, h := page.Size()
	color := geom.ParseColor(a.Color)
	opacity := a.Opacity
	if opacity <= 0 {
		opacity = 0.4
	}
	for _, box := range a.Boxes {
		y := geom.BoxDocumentY(box.Y, box.Height, h)
		page.DrawRectangle(box.X, y, box.Width, box.Height, document.RectOptions{
			FillColor: &color,
			Opacity:   opacity,
		})
	}
}

// drawRedaction paints solid black at full opacity regardless of the
// annotation's color so covered content cannot show through.
func drawRedaction(page *document.Page, a *annotation.Redaction) {
	_, h := page.Size()
	black := geom.Color{}
	for _, box := range a.Boxes {
		y := geom.BoxDocumentY(box.Y, box.Height, h)
		page.DrawRectangle(box.X, y, box.Width, box.Height, document.RectOptions{
			FillColor: &black,
			Opacity:   1,
		})
	}
}

func drawPen(page *document.Page, a *annotation.Pen) {
	if len(a.Points) < 2 {
		return
	}
	_, h := page.Size()
	opts := document.LineOptions{
		Color:     geom.ParseColor(a.Color),
		LineWidth: strokeWidth(a.Thickness),
	}
	for i := 1; i < len(a.Points); i++ {
		p0, p1 := a.Points[i-1], a.Points[i]
		page.DrawLine(p0.X, geom.DocumentY(p0.Y, h), p1.X, geom.DocumentY(p1.Y, h), opts)
	}
}

func drawShape(page *document.Page, a *annotation.Shape) {
	_, h := page.Size()
	color := geom.ParseColor(a.Color)
	width := strokeWidth(a.Thickness)
	x0, y0 := a.Start.X, geom.DocumentY(a.Start.Y, h)
	x1, y1 := a.End.X, geom.DocumentY(a.End.Y, h)

	switch a.Variant {
	case annotation.KindRectangle:
		x, y := math.Min(x0, x1), math.Min(y0, y1)
		w, ht := math.Abs(x1-x0), math.Abs(y1-y0)
		opts := document.RectOptions{StrokeColor: &color, LineWidth: width}
		if a.Fill {
			opts.FillColor = &color
		}
		page.DrawRectangle(x, y, w, ht, opts)
	case annotation.KindCircle:
		cx, cy := (x0+x1)/2, (y0+y1)/2
		rx, ry := math.Abs(x1-x0)/2, math.Abs(y1-y0)/2
		opts := document.EllipseOptions{StrokeColor: &color, LineWidth: width}
		if a.Fill {
			opts.FillColor = &color
		}
		page.DrawEllipse(cx, cy, rx, ry, opts)
	case annotation.KindLine:
		page.DrawLine(x0, y0, x1, y1, document.LineOptions{Color: color, LineWidth: width})
	case annotation.KindArrow:
		opts := document.LineOptions{Color: color, LineWidth: width}
		page.DrawLine(x0, y0, x1, y1, opts)
		drawArrowhead(page, x0, y0, x1, y1, opts)
	}
}

// drawArrowhead strokes the two barbs at the end point, angled 30
// degrees off the shaft.
func drawArrowhead(page *document.Page, x0, y0, x1, y1 float64, opts document.LineOptions) {
	angle := math.Atan2(y1-y0, x1-x0)
	length := 10 + 2*opts.LineWidth
	for _, offset := range []float64{math.Pi / 6, -math.Pi / 6} {
		theta := angle + math.Pi + offset
		page.DrawLine(x1, y1, x1+length*math.Cos(theta), y1+length*math.Sin(theta), opts)
	}
}

func drawTextBox(page *document.Page, a *annotation.Text) {
	if strings.TrimSpace(a.Content) == "" {
		return
	}
	_, h := page.Size()
	size := a.FontSize
	if size <= 0 {
		size = 14
	}
	// The position marks the box's top-left corner; the first baseline
	// sits one em below the top edge.
	page.DrawText(a.Content, a.Position.X, geom.DocumentY(a.Position.Y, h)-size, document.TextOptions{
		Size:     size,
		Color:    geom.ParseColor(a.Color),
		MaxWidth: a.Size.Width,
	})
}

const (
	noteMarkerSize = 18.0
	noteFontSize   = 10.0
)

// drawNote paints the sticky-note marker and the flattened markdown
// body beside it.
func drawNote(page *document.Page, a *annotation.Note) {
	_, h := page.Size()
	color := geom.ParseColor(a.Color)
	top := geom.DocumentY(a.Position.Y, h)
	page.DrawRectangle(a.Position.X, top-noteMarkerSize, noteMarkerSize, noteMarkerSize, document.RectOptions{
		FillColor: &color,
		Opacity:   0.9,
	})
	lines := richtext.FlattenMarkdown(a.Content)
	y := top - noteFontSize
	x := a.Position.X + noteMarkerSize + 6
	for _, line := range lines {
		page.DrawText(line, x, y, document.TextOptions{
			Size:  noteFontSize,
			Color: geom.Color{R: 0.15, G: 0.15, B: 0.15},
		})
		y -= noteFontSize * 1.3
	}
}

// signatureOversample caps embedded signature rasters at this multiple
// of the drawn size in points. Canvas captures tend to arrive far
// larger than the box they end up in.
const signatureOversample = 2

func drawSignature(doc *document.Document, page *document.Page, a *annotation.Signature) error {
	mime, data, err := decodeDataURL(a.DataURL)
	if err != nil {
		return err
	}
	switch mime {
	case "image/png", "image/jpeg":
	default:
		return fmt.Errorf("unsupported signature image type %q", mime)
	}
	img, err := embedSignatureImage(doc, mime, data, a.Size)
	if err != nil {
		return fmt.Errorf("embed signature image: %w", err)
	}
	_, h := page.Size()
	page.DrawImage(img, a.Position.X, geom.BoxDocumentY(a.Position.Y, a.Size.Height, h), a.Size.Width, a.Size.Height)
	return nil
}

// embedSignatureImage registers the signature raster with the document,
// resampling it down first when its pixel dimensions exceed the
// oversample cap for the drawn size.
func embedSignatureImage(doc *document.Document, mime string, data []byte, size geom.Size) (*document.Image, error) {
	maxW := int(size.Width) * signatureOversample
	maxH := int(size.Height) * signatureOversample
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode signature image: %w", err)
	}
	if maxW <= 0 || maxH <= 0 || (cfg.Width <= maxW && cfg.Height <= maxH) {
		if mime == "image/png" {
			return doc.EmbedPNG(data)
		}
		return doc.EmbedJPEG(data)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode signature image: %w", err)
	}
	return doc.EmbedRaster(document.FitRaster(src, maxW, maxH)), nil
}

// decodeDataURL splits a base64 data URL into its media type and
// decoded payload.
func decodeDataURL(u string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mime, _, _ = strings.Cut(meta, ";")
	if !strings.Contains(meta, ";base64") {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return mime, data, nil
}

func strokeWidth(thickness float64) float64 {
	if thickness <= 0 {
		return 2
	}
	return thickness
}
