package document

import "github.com/wudi/pdfedit/geom"

// Form field flag bits (the Ff entry).
const (
	FlagReadOnly    = 1 << 0
	FlagRequired    = 1 << 1
	FlagMultiline   = 1 << 12
	FlagPassword    = 1 << 13
	FlagRadio       = 1 << 15
	FlagPushButton  = 1 << 16
	FlagCombo       = 1 << 17
	FlagMultiSelect = 1 << 21
)

// FormField is the sum type over interactive form fields.
type FormField interface {
	FieldType() string // "Tx", "Btn", "Ch"
	FieldName() string
	FieldFlags() int
	FieldRect() geom.Rect
	FieldPageIndex() int
}

// BaseFormField provides the common state every field carries.
type BaseFormField struct {
	Name      string
	PageIndex int
	Rect      geom.Rect
	Flags     int
}

func (f *BaseFormField) FieldName() string    { return f.Name }
func (f *BaseFormField) FieldFlags() int      { return f.Flags }
func (f *BaseFormField) FieldRect() geom.Rect { return f.Rect }
func (f *BaseFormField) FieldPageIndex() int  { return f.PageIndex }

// TextField is a single- or multi-line text input (FT Tx).
type TextField struct {
	BaseFormField
	Value        string
	DefaultValue string
	MaxLen       int
}

func (f *TextField) FieldType() string { return "Tx" }

// Multiline reports whether the field wraps across lines.
func (f *TextField) Multiline() bool { return f.Flags&FlagMultiline != 0 }

// CheckboxField is an on/off button (FT Btn without the radio or push
// bits).
type CheckboxField struct {
	BaseFormField
	Checked        bool
	DefaultChecked bool
	OnState        string // export value of the "on" state, usually "Yes"
}

func (f *CheckboxField) FieldType() string { return "Btn" }

// RadioWidget is one kid widget of a radio group.
type RadioWidget struct {
	PageIndex int
	Rect      geom.Rect
	OnState   string
}

// RadioGroupField is a set of mutually exclusive buttons sharing one
// field name (FT Btn with the radio bit).
type RadioGroupField struct {
	BaseFormField
	Widgets       []RadioWidget
	Selected      string // on-state name of the chosen widget, "" for none
	DefaultChoice string
}

func (f *RadioGroupField) FieldType() string { return "Btn" }

// DropdownField is a choice field (FT Ch): combo box or list box.
type DropdownField struct {
	BaseFormField
	Options         []string
	Selected        []string
	DefaultSelected []string
}

func (f *DropdownField) FieldType() string { return "Ch" }

// MultiSelect reports whether more than one option may be chosen.
func (f *DropdownField) MultiSelect() bool { return f.Flags&FlagMultiSelect != 0 }

// Form is the document's interactive form.
type Form struct {
	fields    []FormField
	flattened bool
}

// Fields returns all form fields in document order.
func (f *Form) Fields() []FormField {
	out := make([]FormField, len(f.fields))
	copy(out, f.fields)
	return out
}

// FieldByName returns the field with the given fully-qualified name, or
// nil when absent.
func (f *Form) FieldByName(name string) FormField {
	for _, field := range f.fields {
		if field.FieldName() == name {
			return field
		}
	}
	return nil
}

// TextFields returns the text fields in document order.
func (f *Form) TextFields() []*TextField {
	var out []*TextField
	for _, field := range f.fields {
		if tf, ok := field.(*TextField); ok {
			out = append(out, tf)
		}
	}
	return out
}

// CheckBoxes returns the checkbox fields in document order.
func (f *Form) CheckBoxes() []*CheckboxField {
	var out []*CheckboxField
	for _, field := range f.fields {
		if cb, ok := field.(*CheckboxField); ok {
			out = append(out, cb)
		}
	}
	return out
}

// RadioGroups returns the radio group fields in document order.
func (f *Form) RadioGroups() []*RadioGroupField {
	var out []*RadioGroupField
	for _, field := range f.fields {
		if rg, ok := field.(*RadioGroupField); ok {
			out = append(out, rg)
		}
	}
	return out
}

// Dropdowns returns the choice fields in document order.
func (f *Form) Dropdowns() []*DropdownField {
	var out []*DropdownField
	for _, field := range f.fields {
		if dd, ok := field.(*DropdownField); ok {
			out = append(out, dd)
		}
	}
	return out
}

// AddField registers a field. Used by the loader and by tests that
// assemble fixture documents.
func (f *Form) AddField(field FormField) {
	if field != nil {
		f.fields = append(f.fields, field)
	}
}

// SetFields replaces the field list wholesale. Used when page edits
// invalidate widget placements and the surviving set is rebuilt.
func (f *Form) SetFields(fields []FormField) {
	f.fields = append(f.fields[:0:0], fields...)
}

// Flatten marks the form for flattening: at save time field values are
// painted into page content and the interactive form is dropped.
func (f *Form) Flatten() { f.flattened = true }

// Flattened reports whether Flatten has been requested.
func (f *Form) Flattened() bool { return f.flattened }

// Widget is the page-level view of a form field annotation, the shape
// the field registry's detection pass consumes.
type Widget struct {
	FieldType  string // "Tx", "Btn", "Ch"; others are unrecognized
	Name       string
	Flags      int
	Rect       geom.Rect
	Value      string
	Default    string
	Options    []string
	MaxLen     int
	OnState    string
	PageIndex  int
	CalcScript string // JavaScript body of the field's calculate action, if any
}
