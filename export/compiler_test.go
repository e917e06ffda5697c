package export

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/wudi/pdfedit/annotation"
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/forms"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlay"
	"github.com/wudi/pdfedit/pagemgr"
)

// sourcePDF builds a document with the given page sizes and returns its
// encoded bytes.
func sourcePDF(t *testing.T, sizes ...[2]float64) []byte {
	t.Helper()
	d := document.New()
	for i, size := range sizes {
		d.InsertPage(i, size[0], size[1])
	}
	data, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}
	return data
}

func reload(t *testing.T, data []byte) *document.Document {
	t.Helper()
	d, err := document.Load(context.Background(), data)
	if err != nil {
		t.Fatalf("Load output: %v", err)
	}
	return d
}

var (
	objHeaderRe  = regexp.MustCompile(`(\d+) 0 obj\n`)
	contentsRe   = regexp.MustCompile(`/Contents (\[[^\]]*\]|\d+ 0 R)`)
	objRefRe     = regexp.MustCompile(`(\d+) 0 R`)
	streamLenRe  = regexp.MustCompile(`/Length (\d+)`)
	pageDictMark = []byte("/Type /Page /Parent")
)

// pageContentStreams decodes the encoded file far enough to return each
// page's concatenated content stream text, in page order.
func pageContentStreams(t *testing.T, data []byte) []string {
	t.Helper()
	objs := map[int][]byte{}
	var pages []int
	for _, loc := range objHeaderRe.FindAllSubmatchIndex(data, -1) {
		num, _ := strconv.Atoi(string(data[loc[2]:loc[3]]))
		body := data[loc[1]:]
		objs[num] = body
		if end := bytes.Index(body, []byte("\nendobj")); end >= 0 {
			if bytes.Contains(body[:end], pageDictMark) {
				pages = append(pages, num)
			}
		}
	}
	// Pages are written in display order, so object numbers sort them.
	sort.Ints(pages)
	out := make([]string, 0, len(pages))
	for _, num := range pages {
		body := objs[num]
		body = body[:bytes.Index(body, []byte("\nendobj"))]
		var text bytes.Buffer
		if m := contentsRe.FindSubmatch(body); m != nil {
			for _, rm := range objRefRe.FindAllSubmatch(m[1], -1) {
				ref, _ := strconv.Atoi(string(rm[1]))
				text.Write(streamBody(t, objs[ref]))
			}
		}
		out = append(out, text.String())
	}
	return out
}

// streamBody slices a stream object's payload by its /Length and
// decompresses it when flate-coded.
func streamBody(t *testing.T, body []byte) []byte {
	t.Helper()
	marker := []byte("stream\n")
	i := bytes.Index(body, marker)
	if i < 0 {
		t.Fatal("content object carries no stream")
	}
	dict := body[:i]
	lm := streamLenRe.FindSubmatch(dict)
	if lm == nil {
		t.Fatal("content stream has no /Length")
	}
	n, _ := strconv.Atoi(string(lm[1]))
	raw := body[i+len(marker) : i+len(marker)+n]
	if !bytes.Contains(dict, []byte("/FlateDecode")) {
		return raw
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open content stream: %v", err)
	}
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress content stream: %v", err)
	}
	return decoded
}

func TestCompiler_DeleteRotateAnnotate(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792}, [2]float64{595, 842}, [2]float64{500, 500})

	snap := Snapshot{
		Transforms: map[int]pagemgr.Transform{
			2: {Deleted: true},
			3: {Rotation: 90},
		},
		Annotations: []annotation.Annotation{
			&annotation.Highlight{
				Base:  annotation.Base{ID: "anno-1", Page: 3, Color: "#ffeb3b"},
				Boxes: []geom.Rect{{X: 50, Y: 100, Width: 120, Height: 16}},
			},
		},
	}

	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	final := reload(t, out)
	if got := final.PageCount(); got != 2 {
		t.Fatalf("page count = %d, want 2", got)
	}
	if w, h := final.Page(0).Size(); w != 612 || h != 792 {
		t.Fatalf("page 0 size = %gx%g, want 612x792", w, h)
	}
	if w, h := final.Page(1).Size(); w != 500 || h != 500 {
		t.Fatalf("page 1 size = %gx%g, want 500x500", w, h)
	}
	if got := final.Page(1).Rotation(); got != 90 {
		t.Fatalf("surviving page rotation = %d, want 90", got)
	}

	// The highlight's screen-space box {50,100,120,16} on the 500x500
	// page lands at document y = 500-100-16 = 384, on the survivor only.
	streams := pageContentStreams(t, out)
	if len(streams) != 2 {
		t.Fatalf("content streams for %d pages, want 2", len(streams))
	}
	const rect = "50 384 120 16 re"
	if !strings.Contains(streams[1], rect) {
		t.Fatalf("highlight rect missing from surviving page content:\n%s", streams[1])
	}
	if strings.Contains(streams[0], rect) {
		t.Fatal("highlight rect drawn on the wrong page")
	}
}

func TestCompiler_RotationAddsToExisting(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792).SetRotation(90)
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{Transforms: map[int]pagemgr.Transform{1: {Rotation: 90}}}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := reload(t, out).Page(0).Rotation(); got != 180 {
		t.Fatalf("rotation = %d, want 180", got)
	}
}

func TestCompiler_ReorderPages(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792}, [2]float64{400, 400})

	snap := Snapshot{Order: []int{2, 1}}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	final := reload(t, out)
	if w, _ := final.Page(0).Size(); w != 400 {
		t.Fatalf("page 0 width = %g, want 400", w)
	}
	if w, _ := final.Page(1).Size(); w != 612 {
		t.Fatalf("page 1 width = %g, want 612", w)
	}
}

func TestCompiler_InsertsBlankPages(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792}, [2]float64{612, 792})

	snap := Snapshot{
		Blanks: []pagemgr.BlankPage{
			{ID: "blank-1", Position: 1, Width: 595.28, Height: 841.89},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	final := reload(t, out)
	if got := final.PageCount(); got != 3 {
		t.Fatalf("page count = %d, want 3", got)
	}
	if w, h := final.Page(1).Size(); w != 595.28 || h != 841.89 {
		t.Fatalf("blank page size = %gx%g, want A4", w, h)
	}
}

func TestCompiler_BlankShiftsFormFieldPages(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.InsertPage(1, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{
			Name:      "city",
			PageIndex: 1,
			Rect:      geom.Rect{X: 50, Y: 600, Width: 150, Height: 20},
		},
	})
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{
		Blanks: []pagemgr.BlankPage{{ID: "blank-1", Position: 0, Width: 612, Height: 792}},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	field := reload(t, out).Form().FieldByName("city")
	if field == nil {
		t.Fatalf("field lost during compile")
	}
	if got := field.FieldPageIndex(); got != 2 {
		t.Fatalf("field page index = %d, want 2", got)
	}
}

func TestCompiler_DeletedPageDropsFieldsAndAnnotations(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.InsertPage(1, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{
			Name:      "gone",
			PageIndex: 1,
			Rect:      geom.Rect{X: 50, Y: 600, Width: 150, Height: 20},
		},
	})
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{
		Transforms: map[int]pagemgr.Transform{2: {Deleted: true}},
		Annotations: []annotation.Annotation{
			&annotation.Note{
				Base:    annotation.Base{ID: "anno-1", Page: 2},
				Content: "orphaned",
			},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	final := reload(t, out)
	if got := final.PageCount(); got != 1 {
		t.Fatalf("page count = %d, want 1", got)
	}
	if final.Form().FieldByName("gone") != nil {
		t.Fatalf("field on deleted page survived")
	}
}

func TestCompiler_AppliesFormValues(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{
			Name: "name",
			Rect: geom.Rect{X: 50, Y: 700, Width: 200, Height: 20},
		},
	})
	d.Form().AddField(&document.CheckboxField{
		BaseFormField: document.BaseFormField{
			Name: "agree",
			Rect: geom.Rect{X: 50, Y: 660, Width: 16, Height: 16},
		},
		OnState: "Yes",
	})
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{
		Fields: []forms.Field{
			{ID: "field-1", Name: "name", Type: forms.FieldText},
			{ID: "field-2", Name: "agree", Type: forms.FieldCheckbox, OnState: "Yes"},
		},
		Values: map[string]string{
			"field-1": "Ada Lovelace",
			"field-2": "Yes",
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	final := reload(t, out)
	tf, ok := final.Form().FieldByName("name").(*document.TextField)
	if !ok {
		t.Fatalf("text field missing from output")
	}
	if tf.Value != "Ada Lovelace" {
		t.Fatalf("text value = %q, want %q", tf.Value, "Ada Lovelace")
	}
	cb, ok := final.Form().FieldByName("agree").(*document.CheckboxField)
	if !ok {
		t.Fatalf("checkbox missing from output")
	}
	if !cb.Checked {
		t.Fatalf("checkbox not checked")
	}
}

func TestCompiler_SkipFormDataLeavesDefaults(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{
			Name: "name",
			Rect: geom.Rect{X: 50, Y: 700, Width: 200, Height: 20},
		},
	})
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{
		Fields: []forms.Field{{ID: "field-1", Name: "name", Type: forms.FieldText}},
		Values: map[string]string{"field-1": "should not appear"},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{SkipFormData: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	tf, ok := reload(t, out).Form().FieldByName("name").(*document.TextField)
	if !ok {
		t.Fatalf("text field missing from output")
	}
	if tf.Value != "" {
		t.Fatalf("value applied despite SkipFormData: %q", tf.Value)
	}
}

func TestCompiler_FlattenFormsRemovesAcroForm(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{
			Name: "name",
			Rect: geom.Rect{X: 50, Y: 700, Width: 200, Height: 20},
		},
	})
	src, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save source: %v", err)
	}

	snap := Snapshot{
		Fields: []forms.Field{{ID: "field-1", Name: "name", Type: forms.FieldText}},
		Values: map[string]string{"field-1": "baked in"},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{FlattenForms: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if bytes.Contains(out, []byte("/AcroForm")) {
		t.Fatalf("flattened output still carries /AcroForm")
	}
	if got := reload(t, out).Form().Fields(); len(got) != 0 {
		t.Fatalf("flattened output has %d interactive fields", len(got))
	}
}

func TestCompiler_WatermarkRange(t *testing.T) {
	src := sourcePDF(t,
		[2]float64{612, 792}, [2]float64{612, 792},
		[2]float64{612, 792}, [2]float64{612, 792})

	snap := Snapshot{
		Watermark: &overlay.Watermark{
			Text:     "CONFIDENTIAL",
			Opacity:  0.3,
			Position: overlay.PosDiagonal,
			Range:    overlay.PageRange{Type: overlay.RangeSpan, Start: 2, End: 3},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := reload(t, out).PageCount(); got != 4 {
		t.Fatalf("page count = %d, want 4", got)
	}
	if !bytes.Contains(out, []byte("Helvetica-Bold")) {
		t.Fatalf("watermark font not embedded")
	}
	streams := pageContentStreams(t, out)
	if len(streams) != 4 {
		t.Fatalf("content streams for %d pages, want 4", len(streams))
	}
	for i, s := range streams {
		inRange := i == 1 || i == 2
		if got := strings.Contains(s, "(CONFIDENTIAL)"); got != inRange {
			t.Fatalf("page %d watermark presence = %v, want %v", i+1, got, inRange)
		}
	}

	// Without a watermark nothing references the bold face.
	plain, err := NewCompiler(nil).Compile(context.Background(), src, Snapshot{}, Options{})
	if err != nil {
		t.Fatalf("Compile without watermark: %v", err)
	}
	if bytes.Contains(plain, []byte("Helvetica-Bold")) {
		t.Fatalf("bold face embedded without watermark")
	}
}

func TestCompiler_PageNumbers(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792}, [2]float64{612, 792})

	snap := Snapshot{
		PageNumbers: &overlay.PageNumbers{
			Format:   overlay.FormatPageN,
			Position: overlay.PosBottomCenter,
			Start:    5,
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(out, []byte("/Helvetica")) {
		t.Fatalf("page number font not embedded")
	}
	if got := reload(t, out).PageCount(); got != 2 {
		t.Fatalf("page count = %d, want 2", got)
	}
}

func TestCompiler_SignatureAnnotation(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture PNG: %v", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	src := sourcePDF(t, [2]float64{612, 792})
	snap := Snapshot{
		Annotations: []annotation.Annotation{
			&annotation.Signature{
				Base:     annotation.Base{ID: "anno-1", Page: 1},
				Position: geom.Point{X: 100, Y: 600},
				Size:     geom.Size{Width: 120, Height: 40},
				DataURL:  dataURL,
			},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Fatalf("signature image not embedded")
	}
}

func TestCompiler_OversizedSignatureResampled(t *testing.T) {
	// A 200x80 capture drawn into a 40x16 box exceeds the 2x oversample
	// cap and must be resampled to 80x32 before embedding.
	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture PNG: %v", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	src := sourcePDF(t, [2]float64{612, 792})
	snap := Snapshot{
		Annotations: []annotation.Annotation{
			&annotation.Signature{
				Base:     annotation.Base{ID: "anno-1", Page: 1},
				Position: geom.Point{X: 100, Y: 600},
				Size:     geom.Size{Width: 40, Height: 16},
				DataURL:  dataURL,
			},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(out, []byte("/Width 80 /Height 32")) {
		t.Fatal("resampled signature dimensions missing from output")
	}
	if bytes.Contains(out, []byte("/Width 200")) {
		t.Fatal("signature embedded at capture resolution")
	}
}

func TestCompiler_SignatureWithinBoundsNotResampled(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 60, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, color.RGBA{A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture PNG: %v", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	src := sourcePDF(t, [2]float64{612, 792})
	snap := Snapshot{
		Annotations: []annotation.Annotation{
			&annotation.Signature{
				Base:     annotation.Base{ID: "anno-1", Page: 1},
				Position: geom.Point{X: 100, Y: 600},
				Size:     geom.Size{Width: 40, Height: 16},
				DataURL:  dataURL,
			},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !bytes.Contains(out, []byte("/Width 60 /Height 24")) {
		t.Fatal("within-bounds signature was resampled")
	}
}

func TestCompiler_BadSignatureSkipped(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792})
	snap := Snapshot{
		Annotations: []annotation.Annotation{
			&annotation.Signature{
				Base:    annotation.Base{ID: "anno-1", Page: 1},
				Size:    geom.Size{Width: 120, Height: 40},
				DataURL: "data:image/gif;base64,AAAA",
			},
		},
	}
	out, err := NewCompiler(nil).Compile(context.Background(), src, snap, Options{})
	if err != nil {
		t.Fatalf("Compile should skip bad signature, got %v", err)
	}
	if got := reload(t, out).PageCount(); got != 1 {
		t.Fatalf("page count = %d, want 1", got)
	}
}

// captureLogger records the field keys of every entry, regardless of
// level.
type captureLogger struct {
	keys map[string]bool
}

func (l *captureLogger) record(fields []observability.Field) {
	for _, f := range fields {
		l.keys[f.Key()] = true
	}
}

func (l *captureLogger) Debug(_ string, fields ...observability.Field) { l.record(fields) }
func (l *captureLogger) Info(_ string, fields ...observability.Field)  { l.record(fields) }
func (l *captureLogger) Warn(_ string, fields ...observability.Field)  { l.record(fields) }
func (l *captureLogger) Error(_ string, fields ...observability.Field) { l.record(fields) }
func (l *captureLogger) With(...observability.Field) observability.Logger {
	return l
}

func TestCompiler_EmitsExportMetrics(t *testing.T) {
	log := &captureLogger{keys: map[string]bool{}}
	src := sourcePDF(t, [2]float64{612, 792})
	snap := Snapshot{
		Annotations: []annotation.Annotation{
			&annotation.Highlight{
				Base:  annotation.Base{ID: "anno-1", Page: 1},
				Boxes: []geom.Rect{{X: 10, Y: 20, Width: 50, Height: 12}},
			},
		},
	}
	if _, err := NewCompiler(log).Compile(context.Background(), src, snap, Options{}); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for _, key := range []string{
		observability.MetricLoadTime,
		observability.MetricExportTime,
		observability.MetricPageCount,
		observability.MetricAnnotationCount,
		observability.MetricExportBytes,
	} {
		if !log.keys[key] {
			t.Fatalf("metric %q not logged", key)
		}
	}
}

func TestCompiler_ProgressMonotonic(t *testing.T) {
	src := sourcePDF(t, [2]float64{612, 792})

	var stages []Stage
	var percents []int
	_, err := NewCompiler(nil).Compile(context.Background(), src, Snapshot{}, Options{
		Progress: func(stage Stage, percent int) {
			stages = append(stages, stage)
			percents = append(percents, percent)
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(stages) == 0 || stages[0] != StageLoad || stages[len(stages)-1] != StageComplete {
		t.Fatalf("stage sequence = %v", stages)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed at %d: %v", i, percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("final percent = %d, want 100", percents[len(percents)-1])
	}
}

func TestCompiler_RejectsBrokenInput(t *testing.T) {
	if _, err := NewCompiler(nil).Compile(context.Background(), []byte("not a pdf"), Snapshot{}, Options{}); err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, err := decodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	if err != nil {
		t.Fatalf("decodeDataURL: %v", err)
	}
	if mime != "image/png" || string(data) != "abc" {
		t.Fatalf("got %q %q", mime, data)
	}
	for _, bad := range []string{
		"http://example.com/sig.png",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		if _, _, err := decodeDataURL(bad); err == nil {
			t.Fatalf("decodeDataURL(%q) accepted", bad)
		}
	}
}
