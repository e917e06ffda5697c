// Package session wires the edit stores, the decoded document, and the
// export compiler into one per-document editing session, the unit the
// embedding application holds while a file is open.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/wudi/pdfedit/annotation"
	"github.com/wudi/pdfedit/config"
	"github.com/wudi/pdfedit/document"
	"github.com/wudi/pdfedit/export"
	"github.com/wudi/pdfedit/forms"
	"github.com/wudi/pdfedit/geom"
	"github.com/wudi/pdfedit/observability"
	"github.com/wudi/pdfedit/overlay"
	"github.com/wudi/pdfedit/pagemgr"
	"github.com/wudi/pdfedit/richtext"
	"github.com/wudi/pdfedit/scripting"
	"github.com/wudi/pdfedit/storage"
)

// Options configures Open. Every field is optional.
type Options struct {
	Logger  observability.Logger
	Config  *config.EditorConfig
	Storage storage.Store
}

// Session is one open document plus every store tracking edits against
// it. It is not safe for concurrent use.
type Session struct {
	name     string
	original []byte
	doc      *document.Document

	annotations *annotation.Store
	pages       *pagemgr.Store
	overlays    *overlay.Store
	registry    *forms.Registry
	engine      *scripting.Engine

	cfg   config.EditorConfig
	store storage.Store
	log   observability.Logger
}

// Open decodes the document and builds fresh stores around it. The
// input bytes are copied; the caller may reuse its buffer. Encrypted
// documents fail with document.ErrEncrypted in the chain.
func Open(ctx context.Context, name string, data []byte, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	doc, err := document.Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}

	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	fields := forms.Detect(doc)
	s := &Session{
		name:        name,
		original:    append([]byte(nil), data...),
		doc:         doc,
		annotations: annotation.NewStore(),
		pages:       pagemgr.NewStore(doc.PageCount()),
		overlays:    overlay.NewStore(),
		registry:    forms.NewRegistry(fields),
		engine:      scripting.NewEngine(log),
		cfg:         cfg,
		store:       opts.Storage,
		log:         log,
	}
	log.Info("session opened",
		observability.String("name", name),
		observability.Int("pages", doc.PageCount()),
		observability.Int("fields", len(fields)))
	return s, nil
}

// Name returns the file name the session was opened with.
func (s *Session) Name() string { return s.name }

// Document returns the decoded document. Callers must treat it as
// read-only; all edits flow through the stores.
func (s *Session) Document() *document.Document { return s.doc }

// Annotations returns the annotation store.
func (s *Session) Annotations() *annotation.Store { return s.annotations }

// Pages returns the page management store.
func (s *Session) Pages() *pagemgr.Store { return s.pages }

// Overlays returns the watermark and page-number store.
func (s *Session) Overlays() *overlay.Store { return s.overlays }

// Form returns the form field registry.
func (s *Session) Form() *forms.Registry { return s.registry }

// Config returns the active editor configuration.
func (s *Session) Config() config.EditorConfig { return s.cfg }

// HasUnsavedChanges reports whether any store diverges from the state
// at open.
func (s *Session) HasUnsavedChanges() bool {
	if s.annotations.Len() > 0 || s.annotations.CanUndo() {
		return true
	}
	if s.pages.CanUndo() || len(s.pages.BlankPages()) > 0 {
		return true
	}
	if _, ok := s.overlays.Watermark(); ok {
		return true
	}
	if _, ok := s.overlays.PageNumbers(); ok {
		return true
	}
	return s.registry.HasUnsavedChanges()
}

// SuggestedDownloadName derives the export file name from the opened
// name: "report.pdf" suggests "report-edited.pdf".
func (s *Session) SuggestedDownloadName() string {
	base := strings.TrimSuffix(s.name, ".pdf")
	if base == "" {
		base = "document"
	}
	return base + "-edited.pdf"
}

// UpdateFieldValue sets one field value and reruns calculation scripts
// so dependent fields stay consistent.
func (s *Session) UpdateFieldValue(ctx context.Context, id, value string) error {
	s.registry.UpdateValue(id, value)
	if err := s.registry.RunCalculations(ctx, s.engine); err != nil {
		return fmt.Errorf("run field calculations: %w", err)
	}
	return nil
}

// NewTextAnnotationFromHTML flattens pasted HTML into plain text and
// adds a text annotation at the given screen position, returning its
// id. Empty flattened content adds nothing.
func (s *Session) NewTextAnnotationFromHTML(page int, pos geom.Point, source string) (string, error) {
	text, err := richtext.FlattenHTML(source)
	if err != nil {
		return "", fmt.Errorf("flatten pasted html: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return s.annotations.Add(&annotation.Text{
		Base: annotation.Base{
			Page:  page,
			Color: s.cfg.Annotations.Color,
		},
		Position: pos,
		Content:  text,
		FontSize: s.cfg.Annotations.FontSize,
	}), nil
}

// ExportOptions builds compile options from the configuration defaults.
func (s *Session) ExportOptions() export.Options {
	return export.Options{
		SkipAnnotations: s.cfg.Export.SkipAnnotations,
		SkipFormData:    s.cfg.Export.SkipFormData,
		FlattenForms:    s.cfg.Export.FlattenForms,
	}
}

// Export compiles the tracked edits against the pristine original bytes.
// The session state is unchanged afterwards; exporting twice with no
// edits in between yields equivalent documents.
func (s *Session) Export(ctx context.Context, opts export.Options) ([]byte, error) {
	if opts.Calculator == nil {
		opts.Calculator = s.engine
	}
	snap := export.Snapshot{
		Annotations: s.annotations.All(),
		Transforms:  s.pages.Transformations(),
		Order:       s.pages.PageOrder(),
		Blanks:      s.pages.BlankPages(),
		Fields:      s.registry.Fields(),
		Values:      s.registry.Values(),
	}
	if wm, ok := s.overlays.Watermark(); ok {
		snap.Watermark = &wm
	}
	if pn, ok := s.overlays.PageNumbers(); ok {
		snap.PageNumbers = &pn
	}
	compiler := export.NewCompiler(s.log)
	return compiler.Compile(ctx, s.original, snap, opts)
}

// SavedSignatures loads previously captured signatures from persistent
// storage. Without a configured store it returns nothing.
func (s *Session) SavedSignatures() ([]storage.SavedSignature, error) {
	if s.store == nil {
		return nil, nil
	}
	return storage.LoadSignatures(s.store)
}

// SaveSignature appends one captured signature to persistent storage.
func (s *Session) SaveSignature(sig storage.SavedSignature) error {
	if s.store == nil {
		return nil
	}
	sigs, err := storage.LoadSignatures(s.store)
	if err != nil {
		return err
	}
	return storage.SaveSignatures(s.store, append(sigs, sig))
}

// RedactionWarningDismissed reports whether the user already
// acknowledged that redactions are visual-only.
func (s *Session) RedactionWarningDismissed() bool {
	if s.store == nil {
		return false
	}
	return storage.RedactionWarningDismissed(s.store)
}

// DismissRedactionWarning records the acknowledgment.
func (s *Session) DismissRedactionWarning() error {
	if s.store == nil {
		return nil
	}
	return storage.DismissRedactionWarning(s.store)
}

// Close releases the decoded document. The session must not be used
// afterwards.
func (s *Session) Close() {
	s.doc = nil
	s.original = nil
	s.log.Debug("session closed", observability.String("name", s.name))
}
