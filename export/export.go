// Package export compiles tracked edits against the original document
// bytes into a new PDF. The original bytes and the supplied snapshot
// are never mutated; every compile decodes a fresh working document.
package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wudi/pdfedit/annotation"
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/forms"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlay"
	"github.com/wudi/pdfedit/pagemgr"
)

// Stage names one phase of the compile pipeline, reported through the
// progress callback.
type Stage string

const (
	StageLoad        Stage = "load"
	StageStructure   Stage = "structure"
	StageBlankPages  Stage = "blank-pages"
	StagePageNumbers Stage = "page-numbers"
	StageWatermark   Stage = "watermark"
	StageForms       Stage = "forms"
	StageAnnotations Stage = "annotations"
	StageFinalize    Stage = "finalize"
	StageComplete    Stage = "complete"
)

// ProgressFunc observes stage boundaries. Percentages are monotonically
// non-decreasing; the callback never influences control flow.
type ProgressFunc func(stage Stage, percent int)

// Snapshot is the immutable store state a compile works from. Callers
// build it from deep copies; the compiler never reads live stores.
type Snapshot struct {
	Annotations []annotation.Annotation
	Transforms  map[int]pagemgr.Transform
	Order       []int
	Blanks      []pagemgr.BlankPage
	Watermark   *overlay.Watermark
	PageNumbers *overlay.PageNumbers
	Fields      []forms.Field
	Values      map[string]string
}

// Options tunes one compile. The zero value embeds annotations and form
// data and keeps forms interactive.
type Options struct {
	// SkipAnnotations leaves tracked annotations out of the output.
	SkipAnnotations bool

	// SkipFormData leaves live form values out of the output.
	SkipFormData bool

	// FlattenForms paints current values and removes interactivity.
	FlattenForms bool

	// Calculator, when set, runs field calculation scripts over a copy
	// of the live values before they are applied.
	Calculator forms.CalculationRunner

	// Progress observes stage boundaries.
	Progress ProgressFunc
}

// Compiler merges original bytes with tracked edits.
type Compiler struct {
	Logger observability.Logger
}

// NewCompiler returns a compiler logging through log; nil means silent.
func NewCompiler(log observability.Logger) *Compiler {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Compiler{Logger: log}
}

func (c *Compiler) log() observability.Logger {
	if c.Logger == nil {
		return observability.NopLogger{}
	}
	return c.Logger
}

// Compile produces the final document bytes. Structural page edits run
// before any content edit because content stages address pages by final
// position. Per-item failures are logged and skipped; decode and encode
// failures abort.
func (c *Compiler) Compile(ctx context.Context, original []byte, snap Snapshot, opts Options) ([]byte, error) {
	progress := opts.Progress
	if progress == nil {
		progress = func(Stage, int) {}
	}
	started := time.Now()

	progress(StageLoad, 5)
	loadStarted := time.Now()
	doc, err := document.Load(ctx, original)
	if err != nil {
		return nil, fmt.Errorf("export: load source document: %w", err)
	}
	c.log().Debug("source document loaded",
		observability.Float64(observability.MetricLoadTime, time.Since(loadStarted).Seconds()))

	progress(StageStructure, 20)
	mapping, err := c.applyStructure(doc, snap)
	if err != nil {
		return nil, fmt.Errorf("export: structural edits: %w", err)
	}

	progress(StageBlankPages, 30)
	c.insertBlankPages(doc, snap.Blanks, mapping)

	progress(StagePageNumbers, 45)
	if snap.PageNumbers != nil {
		c.applyPageNumbers(doc, *snap.PageNumbers)
	}

	progress(StageWatermark, 60)
	if snap.Watermark != nil {
		c.applyWatermark(doc, *snap.Watermark)
	}

	progress(StageForms, 75)
	c.applyForms(ctx, doc, snap, opts)

	progress(StageAnnotations, 90)
	if !opts.SkipAnnotations {
		c.embedAnnotations(doc, snap.Annotations, mapping)
	}

	progress(StageFinalize, 95)
	out, err := doc.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: encode final document: %w", err)
	}
	c.log().Debug("export complete",
		observability.Float64(observability.MetricExportTime, time.Since(started).Seconds()),
		observability.Int(observability.MetricPageCount, doc.PageCount()),
		observability.Int(observability.MetricAnnotationCount, len(snap.Annotations)),
		observability.Int(observability.MetricExportBytes, len(out)))
	progress(StageComplete, 100)
	return out, nil
}

// applyStructure removes deleted pages, applies additive rotation, and
// reorders to the display permutation. It returns the mapping from
// original 1-based page number to final zero-based index (later shifted
// for inserted blanks); pages absent from the mapping were deleted.
func (c *Compiler) applyStructure(doc *document.Document, snap Snapshot) (map[int]int, error) {
	pageCount := doc.PageCount()
	order := snap.Order
	if len(order) == 0 {
		order = make([]int, pageCount)
		for i := range order {
			order[i] = i + 1
		}
	}

	// Remove deleted pages in descending index order so earlier
	// removals cannot shift later ones.
	var deleted []int
	for page, t := range snap.Transforms {
		if t.Deleted && page >= 1 && page <= pageCount {
			deleted = append(deleted, page)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(deleted)))
	for _, page := range deleted {
		doc.RemovePage(page - 1)
	}

	// Current index of each surviving original page.
	currentIndex := make(map[int]int, pageCount)
	idx := 0
	for page := 1; page <= pageCount; page++ {
		if t, ok := snap.Transforms[page]; ok && t.Deleted {
			continue
		}
		currentIndex[page] = idx
		idx++
	}

	// Rotation deltas are additive to whatever rotation the source
	// page already carries.
	for page, i := range currentIndex {
		if t, ok := snap.Transforms[page]; ok && t.Rotation != 0 {
			p := doc.Page(i)
			p.SetRotation(p.Rotation() + t.Rotation)
		}
	}

	// Final sequence: display order filtered to survivors.
	var finalPages []int
	for _, page := range order {
		if _, ok := currentIndex[page]; ok {
			finalPages = append(finalPages, page)
		}
	}

	mapping := make(map[int]int, len(finalPages))
	identity := true
	indices := make([]int, len(finalPages))
	for i, page := range finalPages {
		mapping[page] = i
		indices[i] = currentIndex[page]
		if indices[i] != i {
			identity = false
		}
	}

	if !identity {
		// Copy pages into a fresh document in target order, then swap
		// the page list, so pages being read are never reordered in
		// place.
		tmp := document.New()
		pages, err := tmp.CopyPages(doc, indices)
		if err != nil {
			return nil, err
		}
		doc.SetPages(pages)
	}

	c.remapFormPages(doc, mapping)
	return mapping, nil
}

// remapFormPages rewrites form field page indices from original to
// final positions and drops fields whose page was deleted.
func (c *Compiler) remapFormPages(doc *document.Document, mapping map[int]int) {
	var kept []document.FormField
	for _, field := range doc.Form().Fields() {
		origPage := field.FieldPageIndex() + 1
		finalIdx, ok := mapping[origPage]
		if !ok {
			if rg, isRadio := field.(*document.RadioGroupField); isRadio {
				if c.remapRadio(rg, mapping) {
					kept = append(kept, rg)
				}
				continue
			}
			c.log().Debug("dropping form field on deleted page",
				observability.String("field", field.FieldName()))
			continue
		}
		switch f := field.(type) {
		case *document.TextField:
			f.PageIndex = finalIdx
		case *document.CheckboxField:
			f.PageIndex = finalIdx
		case *document.DropdownField:
			f.PageIndex = finalIdx
		case *document.RadioGroupField:
			if !c.remapRadio(f, mapping) {
				continue
			}
		}
		kept = append(kept, field)
	}
	doc.Form().SetFields(kept)
}

// remapRadio remaps each kid widget, dropping kids on deleted pages;
// a group with no surviving kids is dropped entirely.
func (c *Compiler) remapRadio(rg *document.RadioGroupField, mapping map[int]int) bool {
	var kids []document.RadioWidget
	for _, kid := range rg.Widgets {
		if finalIdx, ok := mapping[kid.PageIndex+1]; ok {
			kid.PageIndex = finalIdx
			kids = append(kids, kid)
		}
	}
	rg.Widgets = kids
	if len(kids) == 0 {
		return false
	}
	rg.PageIndex = kids[0].PageIndex
	return true
}

// insertBlankPages adds blank pages in descending position order so
// each insertion leaves not-yet-processed positions valid, then shifts
// the original-page mapping for every insertion before it.
func (c *Compiler) insertBlankPages(doc *document.Document, blanks []pagemgr.BlankPage, mapping map[int]int) {
	if len(blanks) == 0 {
		return
	}
	ordered := append([]pagemgr.BlankPage(nil), blanks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Position > ordered[j].Position })

	white := geom.Color{R: 1, G: 1, B: 1}
	for _, bp := range ordered {
		pos := bp.Position
		if pos > doc.PageCount() {
			pos = doc.PageCount()
		}
		page := doc.InsertPage(pos, bp.Width, bp.Height)
		page.DrawRectangle(0, 0, bp.Width, bp.Height, document.RectOptions{FillColor: &white})

		for origPage, idx := range mapping {
			if idx >= pos {
				mapping[origPage] = idx + 1
			}
		}
		// Inserted widgets' page indices shift the same way.
		c.shiftFormPages(doc, pos)
	}
}

func (c *Compiler) shiftFormPages(doc *document.Document, insertedAt int) {
	for _, field := range doc.Form().Fields() {
		switch f := field.(type) {
		case *document.TextField:
			if f.PageIndex >= insertedAt {
				f.PageIndex++
			}
		case *document.CheckboxField:
			if f.PageIndex >= insertedAt {
				f.PageIndex++
			}
		case *document.DropdownField:
			if f.PageIndex >= insertedAt {
				f.PageIndex++
			}
		case *document.RadioGroupField:
			moved := false
			for i := range f.Widgets {
				if f.Widgets[i].PageIndex >= insertedAt {
					f.Widgets[i].PageIndex++
					moved = true
				}
			}
			if moved && len(f.Widgets) > 0 {
				f.PageIndex = f.Widgets[0].PageIndex
			}
		}
	}
}

// applyForms writes live values into the target form, optionally
// running calculation scripts first and flattening afterwards.
func (c *Compiler) applyForms(ctx context.Context, doc *document.Document, snap Snapshot, opts Options) {
	if !opts.SkipFormData && len(snap.Fields) > 0 {
		values := snap.Values
		if opts.Calculator != nil {
			reg := forms.NewRegistry(snap.Fields)
			for id, v := range values {
				reg.UpdateValue(id, v)
			}
			if err := reg.RunCalculations(ctx, opts.Calculator); err != nil {
				c.log().Warn("field calculations failed",
					observability.Error("error", err))
			} else {
				values = reg.Values()
			}
		}
		forms.Apply(doc, snap.Fields, values, c.log())
	}
	if opts.FlattenForms {
		doc.Form().Flatten()
	}
}
