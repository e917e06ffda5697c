package forms

import (
	"strings"

	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/observability"
)

// Apply writes live field values into the target document's interactive
// form, matching by field name. A field with no counterpart in the
// target is logged and skipped, never fatal.
func Apply(doc *document.Document, fields []Field, values map[string]string, log observability.Logger) {
	if log == nil {
		log = observability.NopLogger{}
	}
	for _, f := range fields {
		value, ok := values[f.ID]
		if !ok {
			continue
		}
		target := doc.Form().FieldByName(f.Name)
		if target == nil {
			log.Warn("form field has no counterpart in target document",
				observability.String("field", f.Name))
			continue
		}
		switch t := target.(type) {
		case *document.TextField:
			t.Value = value
		case *document.CheckboxField:
			t.Checked = isOn(value, f.OnState)
		case *document.RadioGroupField:
			t.Selected = value
		case *document.DropdownField:
			if f.MultiSelect {
				t.Selected = splitMulti(value)
			} else if value != "" {
				t.Selected = []string{value}
			} else {
				t.Selected = nil
			}
		default:
			log.Warn("unsupported target field type",
				observability.String("field", f.Name))
		}
	}
}

// isOn interprets a live checkbox value: the widget's export value,
// "true", "on", and "yes" all count as checked.
func isOn(value, onState string) bool {
	if value == "" || value == "Off" {
		return false
	}
	if onState != "" && value == onState {
		return true
	}
	switch strings.ToLower(value) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

func splitMulti(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
