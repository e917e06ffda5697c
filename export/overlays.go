package export

import (
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlay"
)

const (
	overlayMarginX = 40.0
	overlayMarginY = 30.0
)

// applyPageNumbers stamps the number text on every in-range page of the
// final sequence. Numbering is by final position, not source page.
func (c *Compiler) applyPageNumbers(doc *document.Document, cfg overlay.PageNumbers) {
	if err := cfg.Validate(); err != nil {
		c.log().Warn("skipping page numbers", observability.Error("error", err))
		return
	}
	size := cfg.FontSize
	if size <= 0 {
		size = 12
	}
	color := geom.ParseColor(cfg.Color)
	for i := 0; i < doc.PageCount(); i++ {
		if !cfg.Range.Includes(i + 1) {
			continue
		}
		page := doc.Page(i)
		text := cfg.Text(i)
		x, y := anchorPoint(page, cfg.Position, document.Helvetica.MeasureText(text, size), size)
		page.DrawText(text, x, y, document.TextOptions{
			Font:  document.Helvetica,
			Size:  size,
			Color: color,
		})
	}
}

// applyWatermark stamps the watermark text on every in-range page. The
// diagonal position centers the text and forces a 45 degree rotation.
func (c *Compiler) applyWatermark(doc *document.Document, cfg overlay.Watermark) {
	if err := cfg.Validate(); err != nil {
		c.log().Warn("skipping watermark", observability.Error("error", err))
		return
	}
	font := document.HelveticaBold
	if len(cfg.FontData) > 0 {
		ttf, err := document.LoadTrueTypeFont("Watermark", cfg.FontData)
		if err != nil {
			c.log().Warn("watermark font rejected, using built-in",
				observability.Error("error", err))
		} else {
			font = ttf
		}
	}
	size := cfg.FontSize
	if size <= 0 {
		size = 48
	}
	opacity := cfg.Opacity
	if opacity <= 0 {
		opacity = 0.3
	}
	rotation := cfg.Rotation
	position := cfg.Position
	if position == overlay.PosDiagonal {
		position = overlay.PosCenter
		rotation = 45
	}
	color := geom.ParseColor(cfg.Color)
	for i := 0; i < doc.PageCount(); i++ {
		if !cfg.Range.Includes(i + 1) {
			continue
		}
		page := doc.Page(i)
		x, y := anchorPoint(page, position, font.MeasureText(cfg.Text, size), size)
		page.DrawText(cfg.Text, x, y, document.TextOptions{
			Font:     font,
			Size:     size,
			Color:    color,
			Opacity:  opacity,
			Rotation: rotation,
		})
	}
}

// anchorPoint converts an overlay position into a baseline start point
// in document space for text of the given measured width and size.
func anchorPoint(page *document.Page, pos overlay.Position, textWidth, size float64) (x, y float64) {
	w, h := page.Size()
	switch pos {
	case overlay.PosTopLeft, overlay.PosBottomLeft:
		x = overlayMarginX
	case overlay.PosTopRight, overlay.PosBottomRight:
		x = w - overlayMarginX - textWidth
	default:
		x = (w - textWidth) / 2
	}
	switch pos {
	case overlay.PosTopLeft, overlay.PosTopCenter, overlay.PosTopRight:
		y = h - overlayMarginY - size
	case overlay.PosCenter, overlay.PosDiagonal:
		y = (h - size) / 2
	default:
		y = overlayMarginY
	}
	return x, y
}
