package geom

import (
	"math"
	"strconv"
	"strings"
)

// Color is an additive RGB color with channels in [0,1], the form the
// drawing primitives consume.
type Color struct {
	R, G, B float64
}

// fallbackColor is the neutral gray used for anything ParseColor cannot
// understand.
var fallbackColor = Color{R: 0.5, G: 0.5, B: 0.5}

// ParseColor converts a color string in oklch(), hex, or rgb()/rgba()
// notation into an RGB color. Unsupported or unparseable input yields a
// neutral gray; it never fails.
func ParseColor(s string) Color {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "oklch(") && strings.HasSuffix(s, ")"):
		if c, ok := parseOKLCH(s[len("oklch(") : len(s)-1]); ok {
			return c
		}
	case strings.HasPrefix(s, "#"):
		if c, ok := parseHex(s[1:]); ok {
			return c
		}
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		if c, ok := parseRGB(s[len("rgba(") : len(s)-1]); ok {
			return c
		}
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		if c, ok := parseRGB(s[len("rgb(") : len(s)-1]); ok {
			return c
		}
	}
	return fallbackColor
}

func parseOKLCH(body string) (Color, bool) {
	// The alpha component after "/" does not survive into the drawn
	// color; opacity is carried separately by the annotation.
	if i := strings.IndexByte(body, '/'); i >= 0 {
		body = body[:i]
	}
	parts := strings.Fields(strings.ReplaceAll(body, ",", " "))
	if len(parts) != 3 {
		return Color{}, false
	}
	l, ok := parseNumberOrPercent(parts[0], 1)
	if !ok {
		return Color{}, false
	}
	// Chroma percentages are relative to 0.4, the practical sRGB maximum.
	c, ok := parseNumberOrPercent(parts[1], 0.4)
	if !ok {
		return Color{}, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(parts[2], "deg"), 64)
	if err != nil {
		return Color{}, false
	}
	return oklchToRGB(l, c, h), true
}

func parseNumberOrPercent(s string, percentScale float64) (float64, bool) {
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return v / 100 * percentScale, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// oklchToRGB converts OKLCH (lightness, chroma, hue in degrees) through
// OKLab and linear sRGB into gamma-encoded sRGB, clamping each channel.
func oklchToRGB(l, c, hDeg float64) Color {
	hRad := hDeg * math.Pi / 180
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b

	lc := l_ * l_ * l_
	mc := m_ * m_ * m_
	sc := s_ * s_ * s_

	r := 4.0767416621*lc - 3.3077115913*mc + 0.2309699292*sc
	g := -1.2684380046*lc + 2.6097574011*mc - 0.3413193965*sc
	bl := -0.0041960863*lc - 0.7034186147*mc + 1.7076147010*sc

	return Color{R: gammaEncode(r), G: gammaEncode(g), B: gammaEncode(bl)}
}

func gammaEncode(lin float64) float64 {
	var v float64
	if lin <= 0.0031308 {
		v = 12.92 * lin
	} else {
		v = 1.055*math.Pow(lin, 1/2.4) - 0.055
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHex(hex string) (Color, bool) {
	switch len(hex) {
	case 3:
		r, okR := hexNibble(hex[0])
		g, okG := hexNibble(hex[1])
		b, okB := hexNibble(hex[2])
		if !okR || !okG || !okB {
			return Color{}, false
		}
		return Color{R: float64(r*17) / 255, G: float64(g*17) / 255, B: float64(b*17) / 255}, true
	case 6:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return Color{}, false
		}
		return Color{
			R: float64(v>>16&0xff) / 255,
			G: float64(v>>8&0xff) / 255,
			B: float64(v&0xff) / 255,
		}, true
	}
	return Color{}, false
}

func hexNibble(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	}
	return 0, false
}

func parseRGB(body string) (Color, bool) {
	parts := strings.Split(strings.ReplaceAll(body, " ", ","), ",")
	chans := make([]float64, 0, 3)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(chans) == 3 {
			// Fourth component is alpha; ignore it.
			break
		}
		v, ok := parseNumberOrPercent(p, 255)
		if !ok {
			return Color{}, false
		}
		chans = append(chans, clamp01(v/255))
	}
	if len(chans) != 3 {
		return Color{}, false
	}
	return Color{R: chans[0], G: chans[1], B: chans[2]}, true
}
