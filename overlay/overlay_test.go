package overlay

import "testing"

func TestPageRange_Includes(t *testing.T) {
	tests := []struct {
		name string
		r    PageRange
		page int
		want bool
	}{
		{"zero value includes all", PageRange{}, 17, true},
		{"all", PageRange{Type: RangeAll}, 1, true},
		{"span inside", PageRange{Type: RangeSpan, Start: 2, End: 3}, 2, true},
		{"span end inclusive", PageRange{Type: RangeSpan, Start: 2, End: 3}, 3, true},
		{"span before", PageRange{Type: RangeSpan, Start: 2, End: 3}, 1, false},
		{"span after", PageRange{Type: RangeSpan, Start: 2, End: 3}, 4, false},
		{"list hit", PageRange{Type: RangeList, Pages: []int{1, 5}}, 5, true},
		{"list miss", PageRange{Type: RangeList, Pages: []int{1, 5}}, 3, false},
	}
	for _, tc := range tests {
		if got := tc.r.Includes(tc.page); got != tc.want {
			t.Errorf("%s: Includes(%d) = %v, want %v", tc.name, tc.page, got, tc.want)
		}
	}
}

func TestWatermark_Validate(t *testing.T) {
	if err := (Watermark{Text: "  ", Opacity: 0.5}).Validate(); err == nil {
		t.Fatal("empty text accepted")
	}
	if err := (Watermark{Text: "DRAFT", Opacity: 1.5}).Validate(); err == nil {
		t.Fatal("opacity above 1 accepted")
	}
	if err := (Watermark{Text: "DRAFT", Opacity: 0.3, Range: PageRange{Type: RangeSpan, Start: 3, End: 2}}).Validate(); err == nil {
		t.Fatal("inverted range accepted")
	}
	if err := (Watermark{Text: "DRAFT", Opacity: 0.3}).Validate(); err != nil {
		t.Fatalf("valid watermark rejected: %v", err)
	}
}

func TestPageNumbers_Text(t *testing.T) {
	n := PageNumbers{Format: FormatNumeric}
	if got := n.Text(0); got != "1" {
		t.Fatalf("Text(0) = %q, want 1", got)
	}
	n = PageNumbers{Format: FormatPageN, Start: 5, Prefix: "— ", Suffix: " —"}
	if got := n.Text(2); got != "— Page 7 —" {
		t.Fatalf("Text(2) = %q", got)
	}
}

func TestStore_SingleSlot(t *testing.T) {
	s := NewStore()
	notified := 0
	s.Subscribe(func() { notified++ })

	if _, ok := s.Watermark(); ok {
		t.Fatal("fresh store has a watermark")
	}
	if err := s.SetWatermark(Watermark{Text: "DRAFT", Opacity: 0.3}); err != nil {
		t.Fatalf("SetWatermark: %v", err)
	}
	if err := s.SetWatermark(Watermark{Text: "FINAL", Opacity: 0.3}); err != nil {
		t.Fatalf("SetWatermark replace: %v", err)
	}
	w, ok := s.Watermark()
	if !ok || w.Text != "FINAL" {
		t.Fatalf("active watermark = %+v", w)
	}

	if err := s.SetWatermark(Watermark{Text: "", Opacity: 0.3}); err == nil {
		t.Fatal("invalid watermark accepted")
	}
	if w, _ := s.Watermark(); w.Text != "FINAL" {
		t.Fatal("rejected watermark replaced the active one")
	}

	s.ClearWatermark()
	if _, ok := s.Watermark(); ok {
		t.Fatal("watermark survives clear")
	}
	s.ClearWatermark() // no-op, no notification
	if notified != 4 {
		t.Fatalf("notifications = %d, want 4", notified)
	}
}

func TestStore_PageNumbersSlot(t *testing.T) {
	s := NewStore()
	if err := s.SetPageNumbers(PageNumbers{Position: PosDiagonal}); err == nil {
		t.Fatal("diagonal page numbers accepted")
	}
	if err := s.SetPageNumbers(PageNumbers{Position: PosBottomCenter, Range: PageRange{Type: RangeSpan, Start: 1, End: 2}}); err != nil {
		t.Fatalf("SetPageNumbers: %v", err)
	}
	n, ok := s.PageNumbers()
	if !ok || n.Position != PosBottomCenter {
		t.Fatalf("active numbers = %+v", n)
	}
	s.ClearPageNumbers()
	if _, ok := s.PageNumbers(); ok {
		t.Fatal("page numbers survive clear")
	}
}
