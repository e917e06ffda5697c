package forms

import (
	"fmt"
	"strings"

	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/geom"
)

// FieldType classifies a detected form field.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldMultiline FieldType = "multiline"
	FieldDate      FieldType = "date"
	FieldCheckbox  FieldType = "checkbox"
	FieldRadio     FieldType = "radio"
	FieldDropdown  FieldType = "dropdown"
)

// Field is one detected interactive form field. Rect is in document
// space (bottom-left origin).
type Field struct {
	ID           string
	Name         string
	Type         FieldType
	Page         int // 1-based
	Rect         geom.Rect
	DefaultValue string
	Required     bool
	ReadOnly     bool
	MaxLen       int
	Options      []string
	MultiSelect  bool
	OnState      string // checkbox/radio export value
	CalcScript   string // optional JS calculation action
}

// Detect walks every page of the decoded document and builds a field
// record per recognized widget. One unrecognized widget never aborts
// detection of the rest.
func Detect(doc *document.Document) []Field {
	var out []Field
	seq := 0
	for i, page := range doc.Pages() {
		for _, w := range page.Widgets() {
			f, ok := fieldFromWidget(w, i+1)
			if !ok {
				continue
			}
			seq++
			f.ID = fmt.Sprintf("field-%d", seq)
			out = append(out, f)
		}
	}
	return out
}

func fieldFromWidget(w *document.Widget, page int) (Field, bool) {
	f := Field{
		Name:         w.Name,
		Page:         page,
		Rect:         w.Rect,
		DefaultValue: w.Default,
		Required:     w.Flags&document.FlagRequired != 0,
		ReadOnly:     w.Flags&document.FlagReadOnly != 0,
		MaxLen:       w.MaxLen,
		CalcScript:   w.CalcScript,
	}
	switch w.FieldType {
	case "Tx":
		switch {
		case looksLikeDate(w.Name):
			f.Type = FieldDate
		case w.Flags&document.FlagMultiline != 0:
			f.Type = FieldMultiline
		default:
			f.Type = FieldText
		}
		if f.DefaultValue == "" {
			f.DefaultValue = w.Value
		}
	case "Btn":
		if w.Flags&document.FlagPushButton != 0 {
			return Field{}, false // push buttons carry no value
		}
		f.OnState = w.OnState
		if f.OnState == "" {
			f.OnState = "Yes"
		}
		if w.Flags&document.FlagRadio != 0 {
			f.Type = FieldRadio
		} else {
			f.Type = FieldCheckbox
		}
		if f.DefaultValue == "" {
			f.DefaultValue = w.Value
		}
	case "Ch":
		f.Type = FieldDropdown
		f.Options = append([]string(nil), w.Options...)
		f.MultiSelect = w.Flags&document.FlagMultiSelect != 0
		if f.DefaultValue == "" {
			f.DefaultValue = w.Value
		}
	default:
		return Field{}, false
	}
	return f, true
}

// looksLikeDate applies the name heuristic used for date-picker
// treatment of plain text widgets.
func looksLikeDate(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "date") || strings.Contains(n, "dob")
}
