package overlay

// Store holds at most one active watermark and one active page-number
// scheme. Mutations notify subscribers synchronously.
type Store struct {
	watermark *Watermark
	numbers   *PageNumbers

	subs   map[int]func()
	subSeq int
}

// NewStore returns an empty overlay store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func())}
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

// SetWatermark installs the watermark, replacing any active one.
// Invalid configurations are rejected without state change.
func (s *Store) SetWatermark(w Watermark) error {
	if err := w.Validate(); err != nil {
		return err
	}
	c := w
	c.FontData = append([]byte(nil), w.FontData...)
	s.watermark = &c
	s.notify()
	return nil
}

// ClearWatermark removes the active watermark; a no-op when none is
// set.
func (s *Store) ClearWatermark() {
	if s.watermark == nil {
		return
	}
	s.watermark = nil
	s.notify()
}

// Watermark returns a copy of the active watermark configuration.
func (s *Store) Watermark() (Watermark, bool) {
	if s.watermark == nil {
		return Watermark{}, false
	}
	c := *s.watermark
	c.FontData = append([]byte(nil), s.watermark.FontData...)
	return c, true
}

// SetPageNumbers installs the page numbering scheme, replacing any
// active one.
func (s *Store) SetPageNumbers(n PageNumbers) error {
	if err := n.Validate(); err != nil {
		return err
	}
	c := n
	c.Range.Pages = append([]int(nil), n.Range.Pages...)
	s.numbers = &c
	s.notify()
	return nil
}

// ClearPageNumbers removes the active scheme; a no-op when none is set.
func (s *Store) ClearPageNumbers() {
	if s.numbers == nil {
		return
	}
	s.numbers = nil
	s.notify()
}

// PageNumbers returns a copy of the active numbering configuration.
func (s *Store) PageNumbers() (PageNumbers, bool) {
	if s.numbers == nil {
		return PageNumbers{}, false
	}
	c := *s.numbers
	c.Range.Pages = append([]int(nil), s.numbers.Range.Pages...)
	return c, true
}
