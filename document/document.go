// Package document implements the mutable PDF document model the edit
// core compiles into: loading a byte buffer into page objects, drawing
// primitives on pages, interactive form access, and serializing the
// result back to bytes. It is deliberately narrower than a full PDF
// toolkit: classic cross-reference tables, Flate-compressed edit
// streams, standard Type1 text fonts plus embedded TrueType, and PNG or
// JPEG raster embedding.
package document

import (
	"errors"
	"fmt"
)

// ErrEncrypted is returned by Load for password-protected files, which
// the editor does not open.
var ErrEncrypted = errors.New("document is encrypted")

// Info carries the document information dictionary entries the editor
// preserves or sets.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Producer string
}

// Document is a page-addressable, mutable PDF document.
type Document struct {
	pages []*Page
	form  *Form
	info  Info

	fontSeq  int
	imageSeq int
}

// New returns an empty document with no pages.
func New() *Document {
	return &Document{form: &Form{}}
}

// PageCount reports the number of pages currently in the document.
func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the zero-based page i, or nil when out of range.
func (d *Document) Page(i int) *Page {
	if i < 0 || i >= len(d.pages) {
		return nil
	}
	return d.pages[i]
}

// Pages returns a copy of the current page list.
func (d *Document) Pages() []*Page {
	out := make([]*Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Info returns the document information entries.
func (d *Document) Info() Info { return d.info }

// SetInfo replaces the document information entries.
func (d *Document) SetInfo(info Info) { d.info = info }

// Form returns the interactive form. It is never nil; a document
// without fields has an empty form.
func (d *Document) Form() *Form {
	if d.form == nil {
		d.form = &Form{}
	}
	return d.form
}

// RemovePage deletes the zero-based page i. Out-of-range indices are a
// no-op.
func (d *Document) RemovePage(i int) {
	if i < 0 || i >= len(d.pages) {
		return
	}
	d.pages = append(d.pages[:i], d.pages[i+1:]...)
}

// InsertPage inserts a new empty page of the given size before index i
// and returns it. Indices past the end append.
func (d *Document) InsertPage(i int, width, height float64) *Page {
	p := newPage(d, width, height)
	if i < 0 {
		i = 0
	}
	if i >= len(d.pages) {
		d.pages = append(d.pages, p)
		return p
	}
	d.pages = append(d.pages[:i], append([]*Page{p}, d.pages[i:]...)...)
	return p
}

// AppendPage adds an existing page object to the end of the document.
func (d *Document) AppendPage(p *Page) {
	if p == nil {
		return
	}
	p.doc = d
	d.pages = append(d.pages, p)
}

// SetPages replaces the document's page list wholesale. The compiler
// uses this after assembling a reordered copy of the pages.
func (d *Document) SetPages(pages []*Page) {
	d.pages = make([]*Page, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		p.doc = d
		d.pages = append(d.pages, p)
	}
}

// CopyPages clones the pages of src at the given zero-based indices and
// returns the clones, which belong to the receiver afterwards. Cloned
// pages keep their original content, resources, rotation, and edits.
func (d *Document) CopyPages(src *Document, indices []int) ([]*Page, error) {
	if src == nil {
		return nil, fmt.Errorf("copy pages: nil source document")
	}
	out := make([]*Page, 0, len(indices))
	for _, idx := range indices {
		p := src.Page(idx)
		if p == nil {
			return nil, fmt.Errorf("copy pages: index %d out of range (0..%d)", idx, src.PageCount()-1)
		}
		out = append(out, p.clone(d))
	}
	return out, nil
}

func (d *Document) nextFontName() string {
	d.fontSeq++
	// Prefixed so merged resources never collide with the names the
	// original page already uses.
	return fmt.Sprintf("EF%d", d.fontSeq)
}

func (d *Document) nextImageName() string {
	d.imageSeq++
	return fmt.Sprintf("EI%d", d.imageSeq)
}
