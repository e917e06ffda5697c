package document

import (
	"bytes"
	"fmt"

	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// trueTypeFont carries an embedded TrueType program together with the
// shaping state needed to encode and measure text with it.
type trueTypeFont struct {
	data       []byte
	face       *gofont.Face
	unitsPerEm int
	ascent     float64
	descent    float64
	bbox       [4]float64
	usedGlyphs map[int]float64 // glyph id -> advance in 1/1000 em
}

// LoadTrueTypeFont parses a TrueType/OpenType program and returns a
// Font that embeds it. Text drawn with the font is shaped through
// go-text/typesetting and written as two-byte identity glyph IDs.
func LoadTrueTypeFont(name string, data []byte) (*Font, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	parsed, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := int(parsed.UnitsPerEm())
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("truetype font has invalid unitsPerEm")
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse truetype for shaping: %w", err)
	}

	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)
	metrics, err := parsed.Metrics(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("truetype metrics: %w", err)
	}
	bounds, err := parsed.Bounds(buf, ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("truetype bounds: %w", err)
	}
	scale := func(v fixed.Int26_6) float64 {
		return float64(v) / 64.0 / float64(unitsPerEm) * 1000
	}

	baseFont := name
	if ps, _ := parsed.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseFont = ps
	}
	if baseFont == "" {
		baseFont = "EmbeddedTT"
	}

	ttf := &trueTypeFont{
		data:       data,
		face:       face,
		unitsPerEm: unitsPerEm,
		ascent:     scale(metrics.Ascent),
		descent:    scale(metrics.Descent),
		bbox: [4]float64{
			scale(bounds.Min.X), scale(bounds.Min.Y),
			scale(bounds.Max.X), scale(bounds.Max.Y),
		},
		usedGlyphs: make(map[int]float64),
	}
	return &Font{BaseFont: baseFont, ttf: ttf}, nil
}

// shape runs the text through the HarfBuzz shaper at a 1000-unit em so
// advances come out directly in 1/1000 em.
func (t *trueTypeFont) shape(text string) []shaping.Glyph {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	shaper := &shaping.HarfbuzzShaper{}
	input := shaping.Input{
		Text:     runes,
		RunStart: 0,
		RunEnd:   len(runes),
		Face:     t.face,
		Size:     fixed.Int26_6(1000 * 64),
		Language: language.DefaultLanguage(),
	}
	out := shaper.Shape(input)
	return out.Glyphs
}

func (t *trueTypeFont) measure(text string) float64 {
	total := 0.0
	for _, g := range t.shape(text) {
		total += float64(g.XAdvance) / 64.0
	}
	return total
}

// encode returns the two-byte Identity-H glyph string for text and
// records every used glyph so the writer can emit its width.
func (t *trueTypeFont) encode(text string) []byte {
	glyphs := t.shape(text)
	out := make([]byte, 0, len(glyphs)*2)
	for _, g := range glyphs {
		id := int(g.GlyphID)
		t.usedGlyphs[id] = float64(g.XAdvance) / 64.0
		out = append(out, byte(id>>8), byte(id))
	}
	return out
}
