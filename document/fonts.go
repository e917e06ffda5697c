package document

import (
	"strings"
)

// Font is a text font usable with DrawText: either one of the built-in
// standard fonts or an embedded TrueType font.
type Font struct {
	BaseFont string
	widths   []int // standard-font widths indexed from code 32
	ttf      *trueTypeFont
}

// Built-in standard fonts. They need no embedding and carry AFM widths
// for measurement.
var (
	Helvetica     = &Font{BaseFont: "Helvetica", widths: helveticaWidths}
	HelveticaBold = &Font{BaseFont: "Helvetica-Bold", widths: helveticaBoldWidths}
)

// StandardFont returns the built-in font with the given base name,
// falling back to Helvetica for anything unrecognized.
func StandardFont(baseFont string) *Font {
	switch strings.ToLower(baseFont) {
	case "helvetica-bold":
		return HelveticaBold
	default:
		return Helvetica
	}
}

func (f *Font) isTrueType() bool { return f.ttf != nil }

// MeasureText returns the width in points of text rendered at the given
// size. Missing glyph widths fall back to a 500/1000 em advance.
func (f *Font) MeasureText(text string, size float64) float64 {
	if f.ttf != nil {
		return f.ttf.measure(text) / 1000 * size
	}
	total := 0.0
	for _, r := range text {
		total += float64(f.widthOf(r))
	}
	return total / 1000 * size
}

func (f *Font) widthOf(r rune) int {
	idx := int(r) - 32
	if f.widths != nil && idx >= 0 && idx < len(f.widths) {
		return f.widths[idx]
	}
	return 500
}

// encode converts text to the byte string placed in a Tj operand. The
// standard fonts use single-byte Latin codes with '?' for anything
// outside them; TrueType fonts use two-byte identity glyph IDs.
func (f *Font) encode(text string) []byte {
	if f.ttf != nil {
		return f.ttf.encode(text)
	}
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r < 32 || r > 255 {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}

// wrapText splits text into lines no wider than maxWidth at word
// boundaries. A single word wider than the limit gets a line of its own
// rather than being cut.
func wrapText(text string, font *Font, size, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := words[0]
		for _, word := range words[1:] {
			candidate := current + " " + word
			if font.MeasureText(candidate, size) > maxWidth {
				lines = append(lines, current)
				current = word
				continue
			}
			current = candidate
		}
		lines = append(lines, current)
	}
	return lines
}

var helveticaWidths = []int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = []int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
	975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
	333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
	611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}
