package session

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdfedit/annotation"
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/overlay"
	"github.com/wudi/pdfedit/pagemgr"
	"github.com/wudi/pdfedit/storage"
)

func fixturePDF(t *testing.T, pages int) []byte {
	t.Helper()
	d := document.New()
	for i := 0; i < pages; i++ {
		d.InsertPage(i, 612, 792)
	}
	data, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save fixture: %v", err)
	}
	return data
}

func open(t *testing.T, name string, data []byte) *Session {
	t.Helper()
	s, err := Open(context.Background(), name, data, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestSession_OpenInitializesStores(t *testing.T) {
	s := open(t, "report.pdf", fixturePDF(t, 3))
	if got := s.Pages().PageCount(); got != 3 {
		t.Fatalf("page store count = %d, want 3", got)
	}
	if s.HasUnsavedChanges() {
		t.Fatalf("fresh session reports unsaved changes")
	}
	if got := s.SuggestedDownloadName(); got != "report-edited.pdf" {
		t.Fatalf("download name = %q, want report-edited.pdf", got)
	}
}

func TestSession_OpenRejectsGarbage(t *testing.T) {
	if _, err := Open(context.Background(), "x.pdf", []byte("nope"), Options{}); err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
}

func TestSession_OpenEncryptedPassthrough(t *testing.T) {
	// Minimal document whose trailer carries /Encrypt; the broken
	// startxref forces the scan-repair path which surfaces it.
	raw := []byte("%PDF-1.7\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n" +
		"trailer\n<< /Size 4 /Root 1 0 R /Encrypt 9 0 R >>\n" +
		"startxref\n0\n%%EOF\n")
	_, err := Open(context.Background(), "locked.pdf", raw, Options{})
	if !errors.Is(err, document.ErrEncrypted) {
		t.Fatalf("err = %v, want ErrEncrypted in chain", err)
	}
}

func TestSession_UnsavedChangeTracking(t *testing.T) {
	s := open(t, "a.pdf", fixturePDF(t, 2))

	s.Annotations().Add(&annotation.Pen{
		Points: []geom.Point{{X: 1, Y: 1}, {X: 5, Y: 5}},
	})
	if !s.HasUnsavedChanges() {
		t.Fatalf("annotation not counted as unsaved change")
	}
	s.Annotations().Undo()
	if s.HasUnsavedChanges() {
		t.Fatalf("undone annotation still counted")
	}

	s.Pages().Rotate(1, pagemgr.RotateRight)
	if !s.HasUnsavedChanges() {
		t.Fatalf("rotation not counted as unsaved change")
	}
}

func TestSession_TextAnnotationFromHTML(t *testing.T) {
	s := open(t, "a.pdf", fixturePDF(t, 1))

	id, err := s.NewTextAnnotationFromHTML(1, geom.Point{X: 50, Y: 80},
		"<p>Hello <b>world</b></p><p>second</p>")
	if err != nil {
		t.Fatalf("NewTextAnnotationFromHTML: %v", err)
	}
	got, ok := s.Annotations().Get(id).(*annotation.Text)
	if !ok {
		t.Fatalf("annotation %q is not a text annotation", id)
	}
	if got.Content != "Hello world\nsecond" {
		t.Fatalf("content = %q", got.Content)
	}

	id, err = s.NewTextAnnotationFromHTML(1, geom.Point{}, "<div>   </div>")
	if err != nil {
		t.Fatalf("blank html: %v", err)
	}
	if id != "" {
		t.Fatalf("blank html produced annotation %q", id)
	}
}

func TestSession_ExportRoundTrip(t *testing.T) {
	s := open(t, "a.pdf", fixturePDF(t, 3))
	s.Pages().Delete(2)
	s.Pages().Rotate(3, pagemgr.RotateRight)
	s.Annotations().Add(&annotation.Highlight{
		Base:  annotation.Base{Page: 3, Color: "#ffeb3b"},
		Boxes: []geom.Rect{{X: 10, Y: 10, Width: 50, Height: 12}},
	})
	if err := s.Overlays().SetPageNumbers(overlay.PageNumbers{
		Position: overlay.PosBottomCenter,
	}); err != nil {
		t.Fatalf("SetPageNumbers: %v", err)
	}

	out, err := s.Export(context.Background(), s.ExportOptions())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	final, err := document.Load(context.Background(), out)
	if err != nil {
		t.Fatalf("Load export: %v", err)
	}
	if got := final.PageCount(); got != 2 {
		t.Fatalf("exported page count = %d, want 2", got)
	}
	if got := final.Page(1).Rotation(); got != 90 {
		t.Fatalf("exported rotation = %d, want 90", got)
	}

	// Exporting never consumes the tracked edits.
	if !s.HasUnsavedChanges() {
		t.Fatalf("export cleared session state")
	}
	if _, err := s.Export(context.Background(), s.ExportOptions()); err != nil {
		t.Fatalf("second Export: %v", err)
	}
}

func TestSession_SignaturePersistence(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	s, err := Open(context.Background(), "a.pdf", fixturePDF(t, 1), Options{Storage: store})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.SaveSignature(storage.SavedSignature{ID: "sig-1", Name: "mine"}); err != nil {
		t.Fatalf("SaveSignature: %v", err)
	}
	sigs, err := s.SavedSignatures()
	if err != nil {
		t.Fatalf("SavedSignatures: %v", err)
	}
	if len(sigs) != 1 || sigs[0].ID != "sig-1" {
		t.Fatalf("signatures = %+v", sigs)
	}

	if s.RedactionWarningDismissed() {
		t.Fatalf("warning dismissed before any dismissal")
	}
	if err := s.DismissRedactionWarning(); err != nil {
		t.Fatalf("DismissRedactionWarning: %v", err)
	}
	if !s.RedactionWarningDismissed() {
		t.Fatalf("dismissal not persisted")
	}
}

func TestSession_FieldCalculations(t *testing.T) {
	d := document.New()
	d.InsertPage(0, 612, 792)
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{Name: "qty", Rect: geom.Rect{X: 50, Y: 700, Width: 60, Height: 18}},
	})
	d.Form().AddField(&document.TextField{
		BaseFormField: document.BaseFormField{Name: "price", Rect: geom.Rect{X: 120, Y: 700, Width: 60, Height: 18}},
	})
	data, err := d.Save(context.Background())
	if err != nil {
		t.Fatalf("Save fixture: %v", err)
	}

	s := open(t, "invoice.pdf", data)
	fields := s.Form().Fields()
	if len(fields) != 2 {
		t.Fatalf("detected %d fields, want 2", len(fields))
	}
	var qtyID string
	for _, f := range fields {
		if f.Name == "qty" {
			qtyID = f.ID
		}
	}
	if err := s.UpdateFieldValue(context.Background(), qtyID, "7"); err != nil {
		t.Fatalf("UpdateFieldValue: %v", err)
	}
	if got := s.Form().Value(qtyID); got != "7" {
		t.Fatalf("value = %q, want 7", got)
	}
}
