package document

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wudi/pdfedit/geom"
)

// content accumulates operators for one drawing call and flushes them
// onto the page's edit stream in a single append.
type content struct {
	page *Page
	buf  bytes.Buffer
}

func newContent(p *Page) *content { return &content{page: p} }

func (c *content) flush() {
	c.page.edits.Write(c.buf.Bytes())
}

func (c *content) op(format string, args ...interface{}) {
	fmt.Fprintf(&c.buf, format+"\n", args...)
}

func (c *content) save()    { c.op("q") }
func (c *content) restore() { c.op("Q") }

// applyAlpha installs a constant-alpha graphics state when opacity is a
// real fraction; 0 and 1 both mean opaque.
func (c *content) applyAlpha(opacity float64) {
	if opacity <= 0 || opacity >= 1 {
		return
	}
	if name := c.page.alphaRef(opacity); name != "" {
		c.op("/%s gs", name)
	}
}

func (c *content) fillColor(col geom.Color) {
	c.op("%s %s %s rg", num(col.R), num(col.G), num(col.B))
}

func (c *content) strokeColor(col geom.Color) {
	c.op("%s %s %s RG", num(col.R), num(col.G), num(col.B))
}

func (c *content) lineWidth(w float64) {
	if w <= 0 {
		w = 1
	}
	c.op("%s w", num(w))
}

func (c *content) rect(x, y, w, h float64) {
	c.op("%s %s %s %s re", num(x), num(y), num(w), num(h))
}

func (c *content) moveTo(x, y float64) { c.op("%s %s m", num(x), num(y)) }
func (c *content) lineTo(x, y float64) { c.op("%s %s l", num(x), num(y)) }
func (c *content) stroke()             { c.op("S") }

// kappa is the Bezier circle approximation constant.
const kappa = 0.5522847498

func (c *content) ellipse(cx, cy, rx, ry float64) {
	kx, ky := kappa*rx, kappa*ry
	c.moveTo(cx+rx, cy)
	c.op("%s %s %s %s %s %s c", num(cx+rx), num(cy+ky), num(cx+kx), num(cy+ry), num(cx), num(cy+ry))
	c.op("%s %s %s %s %s %s c", num(cx-kx), num(cy+ry), num(cx-rx), num(cy+ky), num(cx-rx), num(cy))
	c.op("%s %s %s %s %s %s c", num(cx-rx), num(cy-ky), num(cx-kx), num(cy-ry), num(cx), num(cy-ry))
	c.op("%s %s %s %s %s %s c", num(cx+kx), num(cy-ry), num(cx+rx), num(cy-ky), num(cx+rx), num(cy))
}

func (c *content) paint(fill, stroke bool) {
	switch {
	case fill && stroke:
		c.op("B")
	case fill:
		c.op("f")
	default:
		c.op("S")
	}
}

func (c *content) beginText(fontName string, size float64) {
	c.op("BT")
	c.op("/%s %s Tf", fontName, num(size))
}

func (c *content) textPosition(x, y float64) {
	c.op("%s %s Td", num(x), num(y))
}

func (c *content) textMatrixRotated(x, y, degrees float64) {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	c.op("%s %s %s %s %s %s Tm", num(cos), num(sin), num(-sin), num(cos), num(x), num(y))
}

func (c *content) textNextLine(dy float64) {
	c.op("0 %s Td", num(dy))
}

func (c *content) showText(encoded []byte) {
	c.buf.WriteByte('(')
	for _, b := range encoded {
		switch b {
		case '(', ')', '\\':
			c.buf.WriteByte('\\')
			c.buf.WriteByte(b)
		case '\n':
			c.buf.WriteString(`\n`)
		case '\r':
			c.buf.WriteString(`\r`)
		default:
			c.buf.WriteByte(b)
		}
	}
	c.buf.WriteString(") Tj\n")
}

func (c *content) endText() { c.op("ET") }

func (c *content) imageMatrix(x, y, w, h float64) {
	c.op("%s 0 0 %s %s %s cm", num(w), num(h), num(x), num(y))
}

func (c *content) drawXObject(name string) { c.op("/%s Do", name) }

func gsName(seq int) string { return fmt.Sprintf("EG%d", seq) }

// num formats a coordinate compactly, trimming trailing zeros the way
// PDF producers conventionally do.
func num(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return fmt.Sprintf("%d", int64(v))
	}
	s := fmt.Sprintf("%.4f", v)
	s = trimZeros(s)
	return s
}

func trimZeros(s string) string {
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
