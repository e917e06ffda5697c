package overlay

import (
	"fmt"
	"strings"
)

// RangeType selects how a PageRange resolves.
type RangeType string

const (
	RangeAll  RangeType = "all"
	RangeSpan RangeType = "range"
	RangeList RangeType = "list"
)

// PageRange is the predicate deciding which pages an overlay applies
// to. It is evaluated per call; the resolved page set is never cached.
// The zero value includes every page.
type PageRange struct {
	Type  RangeType
	Start int   // 1-based, inclusive (RangeSpan)
	End   int   // inclusive
	Pages []int // explicit 1-based list (RangeList)
}

// Includes reports whether the 1-based page number falls inside the
// range.
func (r PageRange) Includes(page int) bool {
	switch r.Type {
	case RangeSpan:
		return page >= r.Start && page <= r.End
	case RangeList:
		for _, p := range r.Pages {
			if p == page {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Validate rejects ranges a user could not have meant.
func (r PageRange) Validate() error {
	switch r.Type {
	case RangeSpan:
		if r.Start < 1 || r.End < r.Start {
			return fmt.Errorf("invalid page range %d-%d", r.Start, r.End)
		}
	case RangeList:
		if len(r.Pages) == 0 {
			return fmt.Errorf("empty page list")
		}
		for _, p := range r.Pages {
			if p < 1 {
				return fmt.Errorf("invalid page number %d in list", p)
			}
		}
	}
	return nil
}

// Position anchors an overlay on the page.
type Position string

const (
	PosTopLeft      Position = "top-left"
	PosTopCenter    Position = "top-center"
	PosTopRight     Position = "top-right"
	PosCenter       Position = "center"
	PosBottomLeft   Position = "bottom-left"
	PosBottomCenter Position = "bottom-center"
	PosBottomRight  Position = "bottom-right"
	// PosDiagonal centers the text and forces a 45 degree rotation
	// regardless of the configured rotation value.
	PosDiagonal Position = "diagonal"
)

// Watermark is the single-slot watermark configuration.
type Watermark struct {
	Text     string
	FontSize float64
	Color    string
	Opacity  float64 // [0,1]
	Rotation float64 // degrees, counter-clockwise
	Position Position
	Range    PageRange
	FontData []byte // optional TTF for non-Latin text
}

// Validate checks the user-supplied configuration.
func (w Watermark) Validate() error {
	if strings.TrimSpace(w.Text) == "" {
		return fmt.Errorf("watermark text is empty")
	}
	if w.Opacity < 0 || w.Opacity > 1 {
		return fmt.Errorf("watermark opacity %g outside [0,1]", w.Opacity)
	}
	return w.Range.Validate()
}

// NumberFormat selects the page-number text form.
type NumberFormat string

const (
	FormatNumeric NumberFormat = "numeric" // "7"
	FormatPageN   NumberFormat = "page-n"  // "Page 7"
)

// PageNumbers is the single-slot page numbering configuration.
type PageNumbers struct {
	Format   NumberFormat
	Prefix   string
	Suffix   string
	Start    int // first page's displayed number; 0 means 1
	Position Position
	FontSize float64
	Color    string
	Range    PageRange
}

// Validate checks the user-supplied configuration.
func (n PageNumbers) Validate() error {
	switch n.Position {
	case PosDiagonal:
		return fmt.Errorf("page numbers cannot be positioned diagonally")
	}
	return n.Range.Validate()
}

// Text renders the displayed string for the page at the given zero-based
// final position.
func (n PageNumbers) Text(position int) string {
	start := n.Start
	if start == 0 {
		start = 1
	}
	value := start + position
	core := fmt.Sprintf("%d", value)
	if n.Format == FormatPageN {
		core = fmt.Sprintf("Page %d", value)
	}
	return n.Prefix + core + n.Suffix
}
