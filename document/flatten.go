package document

import "github.com/wudi/pdfedit/geom"

// flattenFormIntoPages paints current field values into page content so
// the saved file carries no interactive form. Fields whose page index
// is out of range are skipped.
func (d *Document) flattenFormIntoPages() {
	black := geom.Color{R: 0, G: 0, B: 0}
	for _, field := range d.Form().fields {
		switch f := field.(type) {
		case *TextField:
			d.flattenText(f, black)
		case *CheckboxField:
			if f.Checked {
				d.flattenCheck(f.PageIndex, f.Rect, black)
			}
		case *RadioGroupField:
			for _, kid := range f.Widgets {
				if f.Selected != "" && kid.OnState == f.Selected {
					d.flattenDot(kid.PageIndex, kid.Rect, black)
				}
			}
		case *DropdownField:
			if len(f.Selected) > 0 {
				d.flattenValue(f.PageIndex, f.Rect, f.Selected[0], black)
			}
		}
	}
}

func (d *Document) pageAt(index int) *Page {
	if index < 0 || index >= len(d.pages) {
		return nil
	}
	return d.pages[index]
}

func (d *Document) flattenText(f *TextField, color geom.Color) {
	if f.Value == "" {
		return
	}
	page := d.pageAt(f.PageIndex)
	if page == nil {
		return
	}
	size := fitFontSize(f.Rect.Height)
	opts := TextOptions{Font: Helvetica, Size: size, Color: color}
	if f.Multiline() {
		opts.MaxWidth = f.Rect.Width - 4
		page.DrawText(f.Value, f.Rect.X+2, f.Rect.Y+f.Rect.Height-size, opts)
		return
	}
	page.DrawText(f.Value, f.Rect.X+2, f.Rect.Y+(f.Rect.Height-size)/2+size*0.2, opts)
}

func (d *Document) flattenValue(pageIndex int, r geom.Rect, value string, color geom.Color) {
	page := d.pageAt(pageIndex)
	if page == nil || value == "" {
		return
	}
	size := fitFontSize(r.Height)
	page.DrawText(value, r.X+2, r.Y+(r.Height-size)/2+size*0.2, TextOptions{
		Font: Helvetica, Size: size, Color: color,
	})
}

func (d *Document) flattenCheck(pageIndex int, r geom.Rect, color geom.Color) {
	page := d.pageAt(pageIndex)
	if page == nil {
		return
	}
	inset := r.Width * 0.2
	opts := LineOptions{Color: color, LineWidth: 1.5}
	page.DrawLine(r.X+inset, r.Y+inset, r.X+r.Width-inset, r.Y+r.Height-inset, opts)
	page.DrawLine(r.X+inset, r.Y+r.Height-inset, r.X+r.Width-inset, r.Y+inset, opts)
}

func (d *Document) flattenDot(pageIndex int, r geom.Rect, color geom.Color) {
	page := d.pageAt(pageIndex)
	if page == nil {
		return
	}
	rx := r.Width * 0.25
	ry := r.Height * 0.25
	page.DrawEllipse(r.X+r.Width/2, r.Y+r.Height/2, rx, ry, EllipseOptions{FillColor: &color})
}

// fitFontSize picks a text size that fits inside a field of the given
// height, capped at the common form text size.
func fitFontSize(height float64) float64 {
	size := height * 0.6
	if size > 11 {
		size = 11
	}
	if size < 6 {
		size = 6
	}
	return size
}
