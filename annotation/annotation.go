package annotation

import (
	"time"

	"github.com/wudi/pdfedit/geom"
)

// Kind discriminates annotation variants. Shape variants use their own
// kind names so the serialized form carries a single flat tag.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindPen       Kind = "pen"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindArrow     Kind = "arrow"
	KindLine      Kind = "line"
	KindText      Kind = "text"
	KindNote      Kind = "note"
	KindSignature Kind = "signature"
	KindRedaction Kind = "redaction"
)

// Annotation is the sum type over all markup variants. An annotation
// belongs to exactly one page for its whole lifetime and its id never
// changes once assigned.
type Annotation interface {
	Kind() Kind
	AnnotationID() string
	PageNumber() int
	Created() time.Time
	Clone() Annotation

	meta() *Base
}

// Base carries the state common to every variant. Geometry is in
// screen space: origin top-left, y growing downward.
type Base struct {
	ID        string    `json:"id"`
	Page      int       `json:"page"` // 1-based
	CreatedAt time.Time `json:"createdAt"`
	Color     string    `json:"color,omitempty"`
}

func (b *Base) AnnotationID() string { return b.ID }
func (b *Base) PageNumber() int      { return b.Page }
func (b *Base) Created() time.Time   { return b.CreatedAt }
func (b *Base) meta() *Base          { return b }

// Highlight marks one or more text boxes with a translucent fill.
type Highlight struct {
	Base
	Boxes   []geom.Rect `json:"boxes"`
	Opacity float64     `json:"opacity,omitempty"`
}

func (a *Highlight) Kind() Kind { return KindHighlight }

func (a *Highlight) Clone() Annotation {
	c := *a
	c.Boxes = append([]geom.Rect(nil), a.Boxes...)
	return &c
}

// Redaction covers boxes with solid black. It hides content visually
// only; the underlying text survives in the document structure.
type Redaction struct {
	Base
	Boxes []geom.Rect `json:"boxes"`
}

func (a *Redaction) Kind() Kind { return KindRedaction }

func (a *Redaction) Clone() Annotation {
	c := *a
	c.Boxes = append([]geom.Rect(nil), a.Boxes...)
	return &c
}

// Pen is a freehand polyline. Fewer than two points draws nothing.
type Pen struct {
	Base
	Points    []geom.Point `json:"points"`
	Thickness float64      `json:"thickness,omitempty"`
}

func (a *Pen) Kind() Kind { return KindPen }

func (a *Pen) Clone() Annotation {
	c := *a
	c.Points = append([]geom.Point(nil), a.Points...)
	return &c
}

// Shape is a rectangle, circle, arrow, or line spanned by a start/end
// point pair.
type Shape struct {
	Base
	Variant   Kind       `json:"kind"`
	Start     geom.Point `json:"start"`
	End       geom.Point `json:"end"`
	Thickness float64    `json:"thickness,omitempty"`
	Fill      bool       `json:"fill,omitempty"`
}

func (a *Shape) Kind() Kind { return a.Variant }

func (a *Shape) Clone() Annotation {
	c := *a
	return &c
}

// Text is a free-standing text box.
type Text struct {
	Base
	Position geom.Point `json:"position"`
	Size     geom.Size  `json:"size"`
	FontSize float64    `json:"fontSize,omitempty"`
	Content  string     `json:"content"`
}

func (a *Text) Kind() Kind { return KindText }

func (a *Text) Clone() Annotation {
	c := *a
	return &c
}

// Note is a sticky note. Its body may carry markdown, flattened to
// plain lines when the note is drawn into an export.
type Note struct {
	Base
	Position geom.Point `json:"position"`
	Content  string     `json:"content"`
}

func (a *Note) Kind() Kind { return KindNote }

func (a *Note) Clone() Annotation {
	c := *a
	return &c
}

// Signature places a raster image captured as a data URL (PNG or JPEG).
type Signature struct {
	Base
	Position geom.Point `json:"position"`
	Size     geom.Size  `json:"size"`
	DataURL  string     `json:"dataUrl"`
}

func (a *Signature) Kind() Kind { return KindSignature }

func (a *Signature) Clone() Annotation {
	c := *a
	return &c
}
