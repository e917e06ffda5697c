// Package scripting executes AcroForm field calculation scripts. The
// engine exposes the acrobat-style surface scripts expect: a global
// getField(name) returning an object with a live value property, and
// an event object whose value writes back to the field being
// calculated.
package scripting

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/wudi/pdfedit/observability"
)

// Engine runs field calculation scripts. A fresh JavaScript runtime is
// created per calculation so scripts cannot leak state into each other.
type Engine struct {
	log observability.Logger
}

// NewEngine returns an engine logging through the given logger; nil
// means silent.
func NewEngine(log observability.Logger) *Engine {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Engine{log: log}
}

// Calculate executes one field's calculation script. get and set read
// and write live field values by field name; the script's event.value
// assignment lands on fieldName. Satisfies forms.CalculationRunner.
func (e *Engine) Calculate(ctx context.Context, script, fieldName string,
	get func(name string) (string, bool),
	set func(name, value string)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vm := goja.New()
	if err := e.bind(vm, fieldName, get, set); err != nil {
		return fmt.Errorf("bind field accessors: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	defer vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	_, err := vm.RunString(script)
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause, ok := interrupted.Value().(error); ok && cause != nil {
				return cause
			}
			return context.Canceled
		}
		return fmt.Errorf("run calculation script: %w", err)
	}
	return nil
}

func (e *Engine) bind(vm *goja.Runtime, fieldName string,
	get func(name string) (string, bool),
	set func(name, value string)) error {

	fieldObject := func(name string) goja.Value {
		obj := vm.NewObject()
		obj.DefineAccessorProperty("value",
			vm.ToValue(func(call goja.FunctionCall) goja.Value {
				v, _ := get(name)
				return vm.ToValue(v)
			}),
			vm.ToValue(func(call goja.FunctionCall) goja.Value {
				if len(call.Arguments) > 0 {
					set(name, call.Arguments[0].String())
				}
				return goja.Undefined()
			}),
			goja.FLAG_TRUE,
			goja.FLAG_TRUE,
		)
		return obj
	}

	if err := vm.Set("getField", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			return goja.Undefined()
		}
		name := call.Arguments[0].String()
		if _, ok := get(name); !ok {
			e.log.Debug("script referenced unknown field",
				observability.String("field", name))
			return goja.Null()
		}
		return fieldObject(name)
	}); err != nil {
		return err
	}

	// event.value targets the field being calculated.
	return vm.Set("event", fieldObject(fieldName))
}
