package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := newStore(t)

	var missing string
	ok, err := s.Get("absent", &missing)
	if err != nil || ok {
		t.Fatalf("Get(absent) = %v, %v", ok, err)
	}

	if err := s.Set("greeting", "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var got string
	ok, err = s.Get("greeting", &got)
	if err != nil || !ok || got != "hello" {
		t.Fatalf("Get = %q, %v, %v", got, ok, err)
	}

	if err := s.Delete("greeting"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, _ = s.Get("greeting", &got)
	if ok {
		t.Fatal("key survives delete")
	}
	if err := s.Delete("greeting"); err != nil {
		t.Fatalf("deleting a missing key: %v", err)
	}
}

func TestSignatures(t *testing.T) {
	s := newStore(t)

	sigs, err := LoadSignatures(s)
	if err != nil || len(sigs) != 0 {
		t.Fatalf("fresh store signatures = %v, %v", sigs, err)
	}

	want := []SavedSignature{{
		ID:        "sig-1",
		Name:      "default",
		DataURL:   "data:image/png;base64,aGk=",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}
	if err := SaveSignatures(s, want); err != nil {
		t.Fatalf("SaveSignatures: %v", err)
	}
	got, err := LoadSignatures(s)
	if err != nil {
		t.Fatalf("LoadSignatures: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("signature round trip (-want +got):\n%s", diff)
	}
}

func TestRedactionWarningFlag(t *testing.T) {
	s := newStore(t)
	if RedactionWarningDismissed(s) {
		t.Fatal("fresh store reports dismissed")
	}
	if err := DismissRedactionWarning(s); err != nil {
		t.Fatalf("DismissRedactionWarning: %v", err)
	}
	if !RedactionWarningDismissed(s) {
		t.Fatal("flag not persisted")
	}
}
