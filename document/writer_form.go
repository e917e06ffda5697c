package document

import (
	"bytes"
	"fmt"
)

// buildAcroForm serializes the interactive form: one object per field,
// widget annotations attached to their pages, and the AcroForm catalog
// entry with NeedAppearances set so viewers regenerate appearances for
// the values we write.
func (w *objWriter) buildAcroForm(d *Document, pageNums []int, fontNums map[*Font]int) int {
	helvNum := w.fontObject(StandardFont("Helvetica"), fontNums)

	var fieldRefs []int
	for _, field := range d.Form().fields {
		switch f := field.(type) {
		case *TextField:
			fieldRefs = append(fieldRefs, w.textFieldObject(d, f, pageNums))
		case *CheckboxField:
			fieldRefs = append(fieldRefs, w.checkboxObject(d, f, pageNums))
		case *RadioGroupField:
			fieldRefs = append(fieldRefs, w.radioGroupObject(d, f, pageNums))
		case *DropdownField:
			fieldRefs = append(fieldRefs, w.dropdownObject(d, f, pageNums))
		}
	}
	if len(fieldRefs) == 0 {
		return 0
	}

	formNum := w.alloc()
	var buf bytes.Buffer
	buf.WriteString("<< /Fields [")
	for _, n := range fieldRefs {
		fmt.Fprintf(&buf, " %s", ref(n))
	}
	fmt.Fprintf(&buf, " ] /NeedAppearances true /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %s >> >> >>", ref(helvNum))
	w.set(formNum, buf.Bytes())
	return formNum
}

func fieldRect(f FormField) string {
	r := f.FieldRect()
	return fmt.Sprintf("[%s %s %s %s]", num(r.X), num(r.Y), num(r.X+r.Width), num(r.Y+r.Height))
}

// attachWidget records a widget object on its page so the page writer
// can include it in /Annots.
func attachWidget(d *Document, pageIndex, widgetNum int) {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		pageIndex = 0
	}
	page := d.pages[pageIndex]
	page.pendingWidgetRefs = append(page.pendingWidgetRefs, widgetNum)
}

// textFieldObject emits a merged field/widget dictionary.
func (w *objWriter) textFieldObject(d *Document, f *TextField, pageNums []int) int {
	n := w.alloc()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Type /Annot /Subtype /Widget /FT /Tx /T %s /Rect %s /F 4 /P %s /DA (/Helv 0 Tf 0 g)",
		textString(f.Name), fieldRect(f), ref(pageRefFor(pageNums, f.PageIndex)))
	if f.Flags != 0 {
		fmt.Fprintf(&buf, " /Ff %d", f.Flags)
	}
	if f.Value != "" {
		fmt.Fprintf(&buf, " /V %s", textString(f.Value))
	}
	if f.DefaultValue != "" {
		fmt.Fprintf(&buf, " /DV %s", textString(f.DefaultValue))
	}
	if f.MaxLen > 0 {
		fmt.Fprintf(&buf, " /MaxLen %d", f.MaxLen)
	}
	buf.WriteString(" >>")
	w.set(n, buf.Bytes())
	attachWidget(d, f.PageIndex, n)
	return n
}

func (w *objWriter) checkboxObject(d *Document, f *CheckboxField, pageNums []int) int {
	n := w.alloc()
	on := f.OnState
	if on == "" {
		on = "Yes"
	}
	state := "Off"
	if f.Checked {
		state = on
	}
	defState := "Off"
	if f.DefaultChecked {
		defState = on
	}
	var buf bytes.Buffer
	ap := ref(w.emptyAppearance())
	fmt.Fprintf(&buf, "<< /Type /Annot /Subtype /Widget /FT /Btn /T %s /Rect %s /F 4 /P %s /V /%s /DV /%s /AS /%s /AP << /N << /%s %s /Off %s >> >>",
		textString(f.Name), fieldRect(f), ref(pageRefFor(pageNums, f.PageIndex)),
		escapeName(state), escapeName(defState), escapeName(state),
		escapeName(on), ap, ap)
	if f.Flags != 0 {
		fmt.Fprintf(&buf, " /Ff %d", f.Flags)
	}
	buf.WriteString(" >>")
	w.set(n, buf.Bytes())
	attachWidget(d, f.PageIndex, n)
	return n
}

// radioGroupObject emits the parent field plus one kid widget per
// button.
func (w *objWriter) radioGroupObject(d *Document, f *RadioGroupField, pageNums []int) int {
	parent := w.alloc()
	kidNums := make([]int, len(f.Widgets))
	for i, kid := range f.Widgets {
		kn := w.alloc()
		kidNums[i] = kn
		state := "Off"
		if f.Selected != "" && f.Selected == kid.OnState {
			state = kid.OnState
		}
		ap := ref(w.emptyAppearance())
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "<< /Type /Annot /Subtype /Widget /Parent %s /Rect [%s %s %s %s] /F 4 /P %s /AS /%s /AP << /N << /%s %s /Off %s >> >>",
			ref(parent),
			num(kid.Rect.X), num(kid.Rect.Y), num(kid.Rect.X+kid.Rect.Width), num(kid.Rect.Y+kid.Rect.Height),
			ref(pageRefFor(pageNums, kid.PageIndex)), escapeName(state),
			escapeName(kid.OnState), ap, ap)
		w.set(kn, buf.Bytes())
		attachWidget(d, kid.PageIndex, kn)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /FT /Btn /T %s /Ff %d /Kids [", textString(f.Name), f.Flags|FlagRadio)
	for _, kn := range kidNums {
		fmt.Fprintf(&buf, " %s", ref(kn))
	}
	buf.WriteString(" ]")
	if f.Selected != "" {
		fmt.Fprintf(&buf, " /V /%s", escapeName(f.Selected))
	} else {
		buf.WriteString(" /V /Off")
	}
	if f.DefaultChoice != "" {
		fmt.Fprintf(&buf, " /DV /%s", escapeName(f.DefaultChoice))
	}
	buf.WriteString(" >>")
	w.set(parent, buf.Bytes())
	return parent
}

func (w *objWriter) dropdownObject(d *Document, f *DropdownField, pageNums []int) int {
	n := w.alloc()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Type /Annot /Subtype /Widget /FT /Ch /T %s /Rect %s /F 4 /P %s /DA (/Helv 0 Tf 0 g) /Ff %d /Opt [",
		textString(f.Name), fieldRect(f), ref(pageRefFor(pageNums, f.PageIndex)), f.Flags)
	for _, opt := range f.Options {
		fmt.Fprintf(&buf, " %s", textString(opt))
	}
	buf.WriteString(" ]")
	switch len(f.Selected) {
	case 0:
	case 1:
		fmt.Fprintf(&buf, " /V %s", textString(f.Selected[0]))
	default:
		buf.WriteString(" /V [")
		for _, v := range f.Selected {
			fmt.Fprintf(&buf, " %s", textString(v))
		}
		buf.WriteString(" ]")
	}
	buf.WriteString(" >>")
	w.set(n, buf.Bytes())
	attachWidget(d, f.PageIndex, n)
	return n
}

func pageRefFor(pageNums []int, pageIndex int) int {
	if pageIndex < 0 || pageIndex >= len(pageNums) {
		return pageNums[0]
	}
	return pageNums[pageIndex]
}
