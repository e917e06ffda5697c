package pagemgr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStore_RotationNormalization(t *testing.T) {
	s := NewStore(3)
	for i, want := range []int{90, 180, 270, 0} {
		s.Rotate(2, RotateRight)
		if got := s.RotationOf(2); got != want {
			t.Fatalf("after %d right rotations: rotation = %d, want %d", i+1, got, want)
		}
	}
	s.Rotate(2, RotateLeft)
	if got := s.RotationOf(2); got != 270 {
		t.Fatalf("left rotation from 0 = %d, want 270", got)
	}
}

func TestStore_RotateDeletedPageIsNoOp(t *testing.T) {
	s := NewStore(2)
	s.Delete(1)
	canUndo := s.cursor
	s.Rotate(1, RotateRight)
	if s.RotationOf(1) != 0 {
		t.Fatal("rotating a deleted page changed its rotation")
	}
	if s.cursor != canUndo {
		t.Fatal("rotating a deleted page pushed a history entry")
	}
}

func TestStore_DeleteRestoreRoundTrip(t *testing.T) {
	s := NewStore(5)
	s.Rotate(3, RotateRight)
	before := s.RotationOf(3)

	s.Delete(3)
	if !s.IsDeleted(3) {
		t.Fatal("page 3 not deleted")
	}
	if got := s.RotationOf(3); got != before {
		t.Fatalf("deletion changed rotation: %d, want %d", got, before)
	}
	s.Restore(3)
	if s.IsDeleted(3) {
		t.Fatal("page 3 still deleted after restore")
	}
	if got := s.RotationOf(3); got != before {
		t.Fatalf("restore changed rotation: %d, want %d", got, before)
	}
}

func TestStore_VisiblePages(t *testing.T) {
	s := NewStore(5)
	s.DeleteMany([]int{2, 4})
	if diff := cmp.Diff([]int{1, 3, 5}, s.VisiblePages()); diff != "" {
		t.Fatalf("visible pages (-want +got):\n%s", diff)
	}
}

func TestStore_ReorderAndInverse(t *testing.T) {
	s := NewStore(4)
	before := s.PageOrder()

	s.Reorder(0, 2)
	if diff := cmp.Diff([]int{2, 3, 1, 4}, s.PageOrder()); diff != "" {
		t.Fatalf("order after Reorder(0,2) (-want +got):\n%s", diff)
	}
	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	if diff := cmp.Diff(before, s.PageOrder()); diff != "" {
		t.Fatalf("order after undo (-want +got):\n%s", diff)
	}
	if !s.Redo() {
		t.Fatal("Redo failed")
	}
	if diff := cmp.Diff([]int{2, 3, 1, 4}, s.PageOrder()); diff != "" {
		t.Fatalf("order after redo (-want +got):\n%s", diff)
	}
}

func TestStore_ReorderNoOps(t *testing.T) {
	s := NewStore(3)
	before := s.PageOrder()
	notified := 0
	s.Subscribe(func() { notified++ })

	s.Reorder(1, 1)
	s.Reorder(-1, 2)
	s.Reorder(0, 3)
	s.Reorder(5, 0)

	if diff := cmp.Diff(before, s.PageOrder()); diff != "" {
		t.Fatalf("no-op reorders changed order (-want +got):\n%s", diff)
	}
	if notified != 0 {
		t.Fatalf("no-op reorders notified %d times", notified)
	}
	if s.CanUndo() {
		t.Fatal("no-op reorders pushed history")
	}
}

func TestStore_UndoRedoAcrossOperationKinds(t *testing.T) {
	s := NewStore(4)
	s.Rotate(1, RotateRight)
	s.DeleteMany([]int{2, 3})
	s.Reorder(0, 3)
	s.Restore(2)

	for i := 0; i < 4; i++ {
		if !s.Undo() {
			t.Fatalf("Undo %d failed", i+1)
		}
	}
	if s.Undo() {
		t.Fatal("undo past history start succeeded")
	}
	if s.RotationOf(1) != 0 || s.IsDeleted(2) || s.IsDeleted(3) {
		t.Fatal("state not back to identity after full undo")
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, s.PageOrder()); diff != "" {
		t.Fatalf("order after full undo (-want +got):\n%s", diff)
	}

	for i := 0; i < 4; i++ {
		if !s.Redo() {
			t.Fatalf("Redo %d failed", i+1)
		}
	}
	if s.RotationOf(1) != 90 || s.IsDeleted(2) || !s.IsDeleted(3) {
		t.Fatal("state wrong after full redo")
	}
}

func TestStore_HistoryCap(t *testing.T) {
	s := NewStore(1)
	for i := 0; i < 25; i++ {
		s.Rotate(1, RotateRight)
	}
	undos := 0
	for s.Undo() {
		undos++
	}
	if undos != historyCap {
		t.Fatalf("undo depth = %d, want %d", undos, historyCap)
	}
	// 25 rotations put the page at 90 (25 mod 4); undoing the last 20
	// leaves the first 5 applied: 5 mod 4 = 1 quarter turn.
	if got := s.RotationOf(1); got != 90 {
		t.Fatalf("rotation after exhausting undo = %d, want 90", got)
	}
}

func TestStore_TruncatesRedoOnNewMutation(t *testing.T) {
	s := NewStore(3)
	s.Rotate(1, RotateRight)
	s.Rotate(1, RotateRight)
	s.Undo()
	s.Rotate(2, RotateRight)
	if s.Redo() {
		t.Fatal("redo available after a new mutation truncated the future")
	}
	if s.RotationOf(1) != 90 || s.RotationOf(2) != 90 {
		t.Fatalf("state = p1:%d p2:%d, want 90/90", s.RotationOf(1), s.RotationOf(2))
	}
}

func TestStore_BlankPages(t *testing.T) {
	s := NewStore(2)
	bp := s.InsertBlankPage(1, PaperA4, Landscape)
	if bp.ID == "" {
		t.Fatal("blank page id empty")
	}
	if bp.Width != 841.89 || bp.Height != 595.28 {
		t.Fatalf("landscape A4 = %gx%g", bp.Width, bp.Height)
	}
	second := s.InsertBlankPage(0, PaperLetter, Portrait)
	if len(s.BlankPages()) != 2 {
		t.Fatalf("blank pages = %d, want 2", len(s.BlankPages()))
	}
	s.RemoveBlankPage(bp.ID)
	remaining := s.BlankPages()
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("remaining blanks = %+v", remaining)
	}
	s.RemoveBlankPage("missing")
	if len(s.BlankPages()) != 1 {
		t.Fatal("removing an unknown blank id mutated state")
	}
}

func TestStore_QueriesReturnCopies(t *testing.T) {
	s := NewStore(3)
	order := s.PageOrder()
	order[0] = 99
	if s.PageOrder()[0] != 1 {
		t.Fatal("PageOrder leaked internal slice")
	}
	transforms := s.Transformations()
	tr := transforms[1]
	tr.Deleted = true
	transforms[1] = tr
	if s.IsDeleted(1) {
		t.Fatal("Transformations leaked internal map")
	}
}
