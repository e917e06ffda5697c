package annotation

import (
	"fmt"
	"sync/atomic"
	"time"
)

// historyCap bounds the undo depth. The oldest snapshots fall off once
// the cap is exceeded.
const historyCap = 20

var idSeq atomic.Int64

func newID() string {
	return fmt.Sprintf("anno-%d-%d", time.Now().UnixMilli(), idSeq.Add(1))
}

// Store holds the annotations of one loaded document with linear
// undo/redo over full deep-copied snapshots. All operations are
// synchronous; subscriber callbacks run inline after every successful
// mutation and must not mutate the store re-entrantly.
type Store struct {
	items   []Annotation
	history [][]Annotation
	cursor  int
	subs    map[int]func()
	subSeq  int
}

// NewStore returns an empty store whose history starts with the empty
// state, so the first mutation is immediately undoable.
func NewStore() *Store {
	s := &Store{subs: make(map[int]func())}
	s.history = [][]Annotation{nil}
	s.cursor = 0
	return s
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

func (s *Store) snapshot() {
	s.history = s.history[:s.cursor+1]
	s.history = append(s.history, cloneAll(s.items))
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.cursor = len(s.history) - 1
}

func cloneAll(items []Annotation) []Annotation {
	if items == nil {
		return nil
	}
	out := make([]Annotation, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}

// Add stores the annotation and returns its id, assigning one (and a
// creation timestamp) when missing.
func (s *Store) Add(a Annotation) string {
	c := a.Clone()
	m := c.meta()
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.items = append(s.items, c)
	s.snapshot()
	s.notify()
	return m.ID
}

// Update applies a partial patch. An unknown id is a silent no-op: no
// snapshot, no notification. A known id always snapshots, even when
// the patch changes nothing.
func (s *Store) Update(id string, p Patch) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	c := s.items[idx].Clone()
	p.apply(c)
	s.items[idx] = c
	s.snapshot()
	s.notify()
}

// Delete removes the annotation with the given id; unknown ids are
// silently ignored.
func (s *Store) Delete(id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.snapshot()
	s.notify()
}

// Clear drops every annotation.
func (s *Store) Clear() {
	s.items = nil
	s.snapshot()
	s.notify()
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.items {
		if a.AnnotationID() == id {
			return i
		}
	}
	return -1
}

// All returns clones of every annotation in insertion order.
func (s *Store) All() []Annotation { return cloneAll(s.items) }

// ByPage returns clones of the annotations on the given 1-based page,
// preserving insertion order.
func (s *Store) ByPage(page int) []Annotation {
	var out []Annotation
	for _, a := range s.items {
		if a.PageNumber() == page {
			out = append(out, a.Clone())
		}
	}
	return out
}

// Get returns a clone of one annotation, or nil when unknown.
func (s *Store) Get(id string) Annotation {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}
	return s.items[idx].Clone()
}

// Len reports the number of stored annotations.
func (s *Store) Len() int { return len(s.items) }

// CanUndo reports whether an earlier snapshot is reachable.
func (s *Store) CanUndo() bool { return s.cursor > 0 }

// CanRedo reports whether an undone snapshot is reachable.
func (s *Store) CanRedo() bool { return s.cursor < len(s.history)-1 }

// Undo restores the previous snapshot. Exhausted history reports false
// instead of failing.
func (s *Store) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.cursor--
	s.items = cloneAll(s.history[s.cursor])
	s.notify()
	return true
}

// Redo re-applies the next snapshot.
func (s *Store) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	s.cursor++
	s.items = cloneAll(s.history[s.cursor])
	s.notify()
	return true
}

// Export serializes the collection for persistence or transfer.
func (s *Store) Export() (string, error) {
	return Marshal(s.items)
}

// Import replaces the collection wholesale from serialized data.
// Malformed input reports false and leaves the store untouched.
func (s *Store) Import(data string) bool {
	items, err := Unmarshal(data)
	if err != nil {
		return false
	}
	s.items = items
	s.snapshot()
	s.notify()
	return true
}
