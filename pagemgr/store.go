package pagemgr

// historyCap bounds the operation history depth.
const historyCap = 20

// operation is one reversible page-management mutation. Unlike the
// annotation store's full snapshots, these carry an analytic inverse:
// rotate's inverse rotates the other way, delete's inverse restores the
// same set, reorder's inverse swaps its indices.
type operation struct {
	apply  func(s *Store)
	invert func(s *Store)
}

// Store tracks per-page transformations, the display order permutation,
// and inserted blank pages for one loaded document. Operations are
// synchronous; subscribers are notified inline after every effective
// mutation.
type Store struct {
	transforms map[int]Transform // keyed by 1-based original page number
	order      []int             // permutation of [1..pageCount]
	blanks     []BlankPage

	history []operation
	cursor  int // number of applied operations in history

	subs   map[int]func()
	subSeq int
}

// NewStore returns a store for a document with the given page count.
func NewStore(pageCount int) *Store {
	s := &Store{subs: make(map[int]func())}
	s.Initialize(pageCount)
	return s
}

// Initialize resets every transformation to identity, the order to
// [1..pageCount], and clears blank pages and history. Called when a new
// document loads.
func (s *Store) Initialize(pageCount int) {
	if pageCount < 0 {
		pageCount = 0
	}
	s.transforms = make(map[int]Transform, pageCount)
	s.order = make([]int, pageCount)
	for i := 0; i < pageCount; i++ {
		page := i + 1
		s.transforms[page] = Transform{OriginalIndex: i}
		s.order[i] = page
	}
	s.blanks = nil
	s.history = nil
	s.cursor = 0
}

// Subscribe registers a change listener and returns its removal
// function.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Store) notify() {
	for _, fn := range s.subs {
		fn()
	}
}

// record applies op and pushes it onto the history, truncating any
// undone future first.
func (s *Store) record(op operation) {
	op.apply(s)
	s.history = append(s.history[:s.cursor], op)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.cursor = len(s.history)
	s.notify()
}

// PageCount reports the original page count.
func (s *Store) PageCount() int { return len(s.order) }

func (s *Store) validPage(page int) bool {
	_, ok := s.transforms[page]
	return ok
}

// Rotate turns the page 90 degrees in the given direction. Deleted or
// unknown pages are silent no-ops.
func (s *Store) Rotate(page int, dir Direction) {
	t, ok := s.transforms[page]
	if !ok || t.Deleted {
		return
	}
	delta := 90
	if dir == RotateLeft {
		delta = -90
	}
	s.record(operation{
		apply:  func(s *Store) { s.addRotation(page, delta) },
		invert: func(s *Store) { s.addRotation(page, -delta) },
	})
}

func (s *Store) addRotation(page, delta int) {
	t := s.transforms[page]
	t.Rotation = normalizeRotation(t.Rotation + delta)
	s.transforms[page] = t
}

// Delete flags one page as deleted. Already-deleted and unknown pages
// are silent no-ops.
func (s *Store) Delete(page int) { s.DeleteMany([]int{page}) }

// DeleteMany flags a set of pages as deleted in one undoable step. Page
// order is untouched; deleted pages are filtered by VisiblePages.
func (s *Store) DeleteMany(pages []int) {
	var affected []int
	for _, page := range pages {
		if t, ok := s.transforms[page]; ok && !t.Deleted {
			affected = append(affected, page)
		}
	}
	if len(affected) == 0 {
		return
	}
	s.record(operation{
		apply:  func(s *Store) { s.setDeleted(affected, true) },
		invert: func(s *Store) { s.setDeleted(affected, false) },
	})
}

func (s *Store) setDeleted(pages []int, deleted bool) {
	for _, page := range pages {
		t := s.transforms[page]
		t.Deleted = deleted
		s.transforms[page] = t
	}
}

// Restore clears the deletion flag of one page; rotation survives
// deletion untouched. No-op for unknown or non-deleted pages.
func (s *Store) Restore(page int) {
	t, ok := s.transforms[page]
	if !ok || !t.Deleted {
		return
	}
	pages := []int{page}
	s.record(operation{
		apply:  func(s *Store) { s.setDeleted(pages, false) },
		invert: func(s *Store) { s.setDeleted(pages, true) },
	})
}

// Reorder moves the order entry at from to position to. Out-of-range
// indices and from == to are silent no-ops.
func (s *Store) Reorder(from, to int) {
	if from == to || from < 0 || to < 0 || from >= len(s.order) || to >= len(s.order) {
		return
	}
	s.record(operation{
		apply:  func(s *Store) { s.moveOrder(from, to) },
		invert: func(s *Store) { s.moveOrder(to, from) },
	})
}

func (s *Store) moveOrder(from, to int) {
	page := s.order[from]
	s.order = append(s.order[:from], s.order[from+1:]...)
	rest := append([]int(nil), s.order[to:]...)
	s.order = append(append(s.order[:to:to], page), rest...)
}

// InsertBlankPage registers a blank page descriptor at the given final
// position. Blank pages are outside the undo history.
func (s *Store) InsertBlankPage(position int, size PaperSize, orientation Orientation) BlankPage {
	if position < 0 {
		position = 0
	}
	w, h := Dimensions(size, orientation)
	bp := BlankPage{
		ID:          newBlankID(),
		Position:    position,
		Size:        size,
		Orientation: orientation,
		Width:       w,
		Height:      h,
	}
	s.blanks = append(s.blanks, bp)
	s.notify()
	return bp
}

// RemoveBlankPage drops the descriptor with the given id; unknown ids
// are silent no-ops.
func (s *Store) RemoveBlankPage(id string) {
	for i, bp := range s.blanks {
		if bp.ID == id {
			s.blanks = append(s.blanks[:i], s.blanks[i+1:]...)
			s.notify()
			return
		}
	}
}

// CanUndo reports whether an operation can be undone.
func (s *Store) CanUndo() bool { return s.cursor > 0 }

// CanRedo reports whether an undone operation can be re-applied.
func (s *Store) CanRedo() bool { return s.cursor < len(s.history) }

// Undo reverts the most recent operation, reporting false when the
// history is exhausted.
func (s *Store) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.cursor--
	s.history[s.cursor].invert(s)
	s.notify()
	return true
}

// Redo re-applies the most recently undone operation.
func (s *Store) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	s.history[s.cursor].apply(s)
	s.cursor++
	s.notify()
	return true
}

// VisiblePages returns the display order with deleted pages filtered
// out. Computed fresh on every call, never cached.
func (s *Store) VisiblePages() []int {
	var out []int
	for _, page := range s.order {
		if !s.transforms[page].Deleted {
			out = append(out, page)
		}
	}
	return out
}

// IsDeleted reports the deletion flag of a page; unknown pages read as
// not deleted.
func (s *Store) IsDeleted(page int) bool { return s.transforms[page].Deleted }

// RotationOf returns the page's current rotation in degrees.
func (s *Store) RotationOf(page int) int { return s.transforms[page].Rotation }

// PageOrder returns a copy of the display-order permutation, including
// deleted pages.
func (s *Store) PageOrder() []int { return append([]int(nil), s.order...) }

// BlankPages returns a copy of the blank-page descriptors in insertion
// order.
func (s *Store) BlankPages() []BlankPage { return append([]BlankPage(nil), s.blanks...) }

// Transformations returns a copy of the per-page transformation map.
func (s *Store) Transformations() map[int]Transform {
	out := make(map[int]Transform, len(s.transforms))
	for page, t := range s.transforms {
		out[page] = t
	}
	return out
}
