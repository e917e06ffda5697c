package forms

import (
	"context"
	"fmt"
)

// CalculationRunner executes one field calculation script against the
// live value map. Implemented by scripting.Engine.
type CalculationRunner interface {
	Calculate(ctx context.Context, script, fieldName string,
		get func(name string) (string, bool),
		set func(name, value string)) error
}

// Registry tracks detected fields and their live values for one loaded
// document. Live edits never touch a field's recorded default.
type Registry struct {
	fields []Field
	values map[string]string // field id -> live value

	subs   map[int]func()
	subSeq int
}

// NewRegistry returns a registry seeded with the given fields; live
// values start at the defaults.
func NewRegistry(fields []Field) *Registry {
	r := &Registry{subs: make(map[int]func())}
	r.SetFields(fields)
	return r
}

// SetFields replaces the field list and resets all live values to the
// defaults.
func (r *Registry) SetFields(fields []Field) {
	r.fields = append([]Field(nil), fields...)
	r.values = make(map[string]string, len(fields))
	for _, f := range fields {
		r.values[f.ID] = f.DefaultValue
	}
	r.notify()
}

// Subscribe registers a change listener and returns its removal
// function.
func (r *Registry) Subscribe(fn func()) (unsubscribe func()) {
	r.subSeq++
	id := r.subSeq
	r.subs[id] = fn
	return func() { delete(r.subs, id) }
}

func (r *Registry) notify() {
	for _, fn := range r.subs {
		fn()
	}
}

// Fields returns a copy of the detected fields.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	for i := range out {
		out[i].Options = append([]string(nil), r.fields[i].Options...)
	}
	return out
}

// FieldByID returns the field record, or false when unknown.
func (r *Registry) FieldByID(id string) (Field, bool) {
	for _, f := range r.fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// UpdateValue stores a live value. Unknown ids are silent no-ops.
func (r *Registry) UpdateValue(id, value string) {
	if _, ok := r.FieldByID(id); !ok {
		return
	}
	r.values[id] = value
	r.notify()
}

// Value returns the live value of a field.
func (r *Registry) Value(id string) string { return r.values[id] }

// Values returns a copy of the live value map keyed by field id.
func (r *Registry) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// HasUnsavedChanges reports whether any field's live value differs from
// its recorded default.
func (r *Registry) HasUnsavedChanges() bool {
	for _, f := range r.fields {
		if r.values[f.ID] != f.DefaultValue {
			return true
		}
	}
	return false
}

// ResetField copies a field's default back into the live map.
func (r *Registry) ResetField(id string) {
	f, ok := r.FieldByID(id)
	if !ok {
		return
	}
	r.values[id] = f.DefaultValue
	r.notify()
}

// ResetAll restores every field to its default.
func (r *Registry) ResetAll() {
	for _, f := range r.fields {
		r.values[f.ID] = f.DefaultValue
	}
	r.notify()
}

// RunCalculations executes each field's calculation script in registry
// order, writing computed values back into the live map. Scripts read
// and write sibling fields by name.
func (r *Registry) RunCalculations(ctx context.Context, runner CalculationRunner) error {
	if runner == nil {
		return nil
	}
	byName := make(map[string]string, len(r.fields)) // name -> id
	for _, f := range r.fields {
		byName[f.Name] = f.ID
	}
	get := func(name string) (string, bool) {
		id, ok := byName[name]
		if !ok {
			return "", false
		}
		return r.values[id], true
	}
	set := func(name, value string) {
		if id, ok := byName[name]; ok {
			r.values[id] = value
		}
	}
	for _, f := range r.fields {
		if f.CalcScript == "" {
			continue
		}
		if err := runner.Calculate(ctx, f.CalcScript, f.Name, get, set); err != nil {
			return fmt.Errorf("calculate field %q: %w", f.Name, err)
		}
	}
	r.notify()
	return nil
}
