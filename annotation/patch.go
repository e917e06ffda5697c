package annotation

import "github.com/wudi/pdfedit/geom"

// Patch is a partial update. Nil fields are left untouched; fields that
// do not apply to the target's kind are ignored.
type Patch struct {
	Color     *string
	Opacity   *float64
	Thickness *float64
	Content   *string
	FontSize  *float64
	Position  *geom.Point
	Size      *geom.Size
	Start     *geom.Point
	End       *geom.Point
	Fill      *bool
	Boxes     []geom.Rect
	Points    []geom.Point
	DataURL   *string
}

// apply is the single dispatch point over annotation kinds for partial
// updates. It mutates a in place; callers pass a private clone.
func (p Patch) apply(a Annotation) {
	if p.Color != nil {
		a.meta().Color = *p.Color
	}
	switch v := a.(type) {
	case *Highlight:
		if p.Opacity != nil {
			v.Opacity = *p.Opacity
		}
		if p.Boxes != nil {
			v.Boxes = append([]geom.Rect(nil), p.Boxes...)
		}
	case *Redaction:
		if p.Boxes != nil {
			v.Boxes = append([]geom.Rect(nil), p.Boxes...)
		}
	case *Pen:
		if p.Thickness != nil {
			v.Thickness = *p.Thickness
		}
		if p.Points != nil {
			v.Points = append([]geom.Point(nil), p.Points...)
		}
	case *Shape:
		if p.Thickness != nil {
			v.Thickness = *p.Thickness
		}
		if p.Start != nil {
			v.Start = *p.Start
		}
		if p.End != nil {
			v.End = *p.End
		}
		if p.Fill != nil {
			v.Fill = *p.Fill
		}
	case *Text:
		if p.Content != nil {
			v.Content = *p.Content
		}
		if p.FontSize != nil {
			v.FontSize = *p.FontSize
		}
		if p.Position != nil {
			v.Position = *p.Position
		}
		if p.Size != nil {
			v.Size = *p.Size
		}
	case *Note:
		if p.Content != nil {
			v.Content = *p.Content
		}
		if p.Position != nil {
			v.Position = *p.Position
		}
	case *Signature:
		if p.Position != nil {
			v.Position = *p.Position
		}
		if p.Size != nil {
			v.Size = *p.Size
		}
		if p.DataURL != nil {
			v.DataURL = *p.DataURL
		}
	}
}
