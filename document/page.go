package document

import (
	"bytes"

	"github.com/wudi/pdfedit/geom"
)

// Page is one page of a Document. Pages loaded from bytes keep their
// original content and resources untouched; every drawing call appends
// to a separate edit stream that is emitted after the original content.
type Page struct {
	doc    *Document
	width  float64
	height float64
	rotate int

	// original, decoded-from-file state (nil for new pages)
	rawResources rawDict
	rawContents  []rawStream
	rawAnnots    []rawObj

	widgets []*Widget

	edits  bytes.Buffer
	fonts  map[string]*Font
	images map[string]*Image
	alphas map[string]float64

	// widget annotation objects allocated during form serialization,
	// consumed when the page's /Annots array is written
	pendingWidgetRefs []int
}

func newPage(d *Document, width, height float64) *Page {
	return &Page{doc: d, width: width, height: height}
}

// Size returns the page width and height in points, before any rotation
// is applied by a viewer.
func (p *Page) Size() (width, height float64) { return p.width, p.height }

// Rotation returns the page's current rotation in degrees, normalized
// to [0,360).
func (p *Page) Rotation() int { return p.rotate }

// SetRotation sets the page rotation, normalizing into [0,360).
func (p *Page) SetRotation(degrees int) {
	degrees %= 360
	if degrees < 0 {
		degrees += 360
	}
	p.rotate = degrees
}

// Widgets returns the interactive form widgets detected on this page at
// load time.
func (p *Page) Widgets() []*Widget {
	out := make([]*Widget, len(p.widgets))
	copy(out, p.widgets)
	return out
}

func (p *Page) clone(into *Document) *Page {
	c := &Page{
		doc:    into,
		width:  p.width,
		height: p.height,
		rotate: p.rotate,
	}
	c.rawResources = copyRawDict(p.rawResources)
	c.rawContents = append([]rawStream(nil), p.rawContents...)
	c.rawAnnots = append([]rawObj(nil), p.rawAnnots...)
	c.widgets = append([]*Widget(nil), p.widgets...)
	c.edits.Write(p.edits.Bytes())
	if len(p.fonts) > 0 {
		c.fonts = make(map[string]*Font, len(p.fonts))
		for k, v := range p.fonts {
			c.fonts[k] = v
		}
	}
	if len(p.images) > 0 {
		c.images = make(map[string]*Image, len(p.images))
		for k, v := range p.images {
			c.images[k] = v
		}
	}
	if len(p.alphas) > 0 {
		c.alphas = make(map[string]float64, len(p.alphas))
		for k, v := range p.alphas {
			c.alphas[k] = v
		}
	}
	return c
}

// fontRef registers a font on the page resources and returns its
// resource name.
func (p *Page) fontRef(f *Font) string {
	if p.fonts == nil {
		p.fonts = make(map[string]*Font)
	}
	for name, existing := range p.fonts {
		if existing == f {
			return name
		}
	}
	name := p.doc.nextFontName()
	p.fonts[name] = f
	return name
}

func (p *Page) imageRef(img *Image) string {
	if p.images == nil {
		p.images = make(map[string]*Image)
	}
	for name, existing := range p.images {
		if existing == img {
			return name
		}
	}
	name := p.doc.nextImageName()
	p.images[name] = img
	return name
}

// alphaRef registers a constant-alpha graphics state and returns its
// resource name. Alpha 1 needs no state and returns "".
func (p *Page) alphaRef(alpha float64) string {
	if alpha >= 1 || alpha < 0 {
		return ""
	}
	if p.alphas == nil {
		p.alphas = make(map[string]float64)
	}
	for name, a := range p.alphas {
		if a == alpha {
			return name
		}
	}
	name := gsName(len(p.alphas) + 1)
	p.alphas[name] = alpha
	return name
}

// RectOptions configures DrawRectangle. A nil color disables the
// corresponding paint operation; at least one must be set for the call
// to draw anything.
type RectOptions struct {
	FillColor   *geom.Color
	StrokeColor *geom.Color
	LineWidth   float64
	Opacity     float64 // 0 or 1 means fully opaque
}

// LineOptions configures DrawLine.
type LineOptions struct {
	Color     geom.Color
	LineWidth float64
	Opacity   float64
}

// EllipseOptions configures DrawEllipse.
type EllipseOptions struct {
	FillColor   *geom.Color
	StrokeColor *geom.Color
	LineWidth   float64
	Opacity     float64
}

// TextOptions configures DrawText.
type TextOptions struct {
	Font     *Font
	Size     float64
	Color    geom.Color
	Opacity  float64
	MaxWidth float64 // wrap width in points; 0 disables wrapping
	Rotation float64 // counter-clockwise degrees about the anchor
	LineGap  float64 // extra space between wrapped lines; default 0.2em
}

// DrawRectangle draws an axis-aligned rectangle anchored at its
// bottom-left corner in document space.
func (p *Page) DrawRectangle(x, y, width, height float64, opts RectOptions) {
	if opts.FillColor == nil && opts.StrokeColor == nil {
		return
	}
	c := newContent(p)
	c.save()
	c.applyAlpha(opts.Opacity)
	if opts.FillColor != nil {
		c.fillColor(*opts.FillColor)
	}
	if opts.StrokeColor != nil {
		c.strokeColor(*opts.StrokeColor)
		c.lineWidth(opts.LineWidth)
	}
	c.rect(x, y, width, height)
	c.paint(opts.FillColor != nil, opts.StrokeColor != nil)
	c.restore()
	c.flush()
}

// DrawLine draws a straight stroked segment.
func (p *Page) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) {
	c := newContent(p)
	c.save()
	c.applyAlpha(opts.Opacity)
	c.strokeColor(opts.Color)
	c.lineWidth(opts.LineWidth)
	c.moveTo(x1, y1)
	c.lineTo(x2, y2)
	c.stroke()
	c.restore()
	c.flush()
}

// DrawEllipse draws an ellipse centered at (cx, cy) with the given
// radii, approximated by four cubic Bezier arcs.
func (p *Page) DrawEllipse(cx, cy, rx, ry float64, opts EllipseOptions) {
	if opts.FillColor == nil && opts.StrokeColor == nil {
		return
	}
	c := newContent(p)
	c.save()
	c.applyAlpha(opts.Opacity)
	if opts.FillColor != nil {
		c.fillColor(*opts.FillColor)
	}
	if opts.StrokeColor != nil {
		c.strokeColor(*opts.StrokeColor)
		c.lineWidth(opts.LineWidth)
	}
	c.ellipse(cx, cy, rx, ry)
	c.paint(opts.FillColor != nil, opts.StrokeColor != nil)
	c.restore()
	c.flush()
}

// DrawText draws text anchored at the baseline start (x, y) in document
// space. When MaxWidth is set the text wraps at word boundaries and
// successive lines step downward by the line height.
func (p *Page) DrawText(text string, x, y float64, opts TextOptions) {
	if text == "" {
		return
	}
	font := opts.Font
	if font == nil {
		font = Helvetica
	}
	size := opts.Size
	if size <= 0 {
		size = 12
	}
	lines := []string{text}
	if opts.MaxWidth > 0 {
		lines = wrapText(text, font, size, opts.MaxWidth)
	}
	gap := opts.LineGap
	if gap == 0 {
		gap = 0.2 * size
	}
	lineStep := size + gap

	c := newContent(p)
	c.save()
	c.applyAlpha(opts.Opacity)
	c.fillColor(opts.Color)
	c.beginText(p.fontRef(font), size)
	if opts.Rotation != 0 {
		c.textMatrixRotated(x, y, opts.Rotation)
	} else {
		c.textPosition(x, y)
	}
	for i, line := range lines {
		if i > 0 {
			c.textNextLine(-lineStep)
		}
		c.showText(font.encode(line))
	}
	c.endText()
	c.restore()
	c.flush()
}

// DrawImage draws an embedded raster at (x, y) with the given size.
func (p *Page) DrawImage(img *Image, x, y, width, height float64) {
	if img == nil {
		return
	}
	if width <= 0 {
		width = float64(img.Width)
	}
	if height <= 0 {
		height = float64(img.Height)
	}
	c := newContent(p)
	c.save()
	c.imageMatrix(x, y, width, height)
	c.drawXObject(p.imageRef(img))
	c.restore()
	c.flush()
}
