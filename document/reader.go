package document

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/wudi/pdfedit/geom"
)

// Load decodes a PDF byte buffer into a Document. It understands
// classic cross-reference tables (with incremental /Prev chains) and
// falls back to a raw object scan when the table is missing or broken.
// Encrypted files fail with ErrEncrypted; structural damage fails with
// a wrapped parse error and no partial document.
func Load(ctx context.Context, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("load document: missing PDF header")
	}
	p := &parser{
		data:    data,
		offsets: make(map[int]int),
		cache:   make(map[int]rawObj),
		loading: make(map[int]bool),
	}
	trailer, err := p.loadXref()
	if err != nil {
		// Damaged or stream-based xref: recover by scanning for
		// object headers directly.
		p.scanObjects()
		trailer = p.scanTrailer()
		if trailer == nil {
			return nil, fmt.Errorf("load document: %w", err)
		}
	}
	if _, encrypted := trailer["Encrypt"]; encrypted {
		return nil, ErrEncrypted
	}

	rootDict, ok := p.resolve(trailer["Root"]).(rawDict)
	if !ok {
		return nil, fmt.Errorf("load document: catalog not found")
	}
	doc := New()
	if infoDict, ok := p.resolve(trailer["Info"]).(rawDict); ok {
		doc.info.Title, _ = dictString(infoDict, "Title")
		doc.info.Author, _ = dictString(infoDict, "Author")
		doc.info.Subject, _ = dictString(infoDict, "Subject")
		doc.info.Producer, _ = dictString(infoDict, "Producer")
	}

	pagesDict, ok := p.resolve(rootDict["Pages"]).(rawDict)
	if !ok {
		return nil, fmt.Errorf("load document: page tree not found")
	}
	var pageDicts []rawDict
	if err := p.walkPageTree(pagesDict, inherited{}, &pageDicts, 0); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if len(pageDicts) == 0 {
		return nil, fmt.Errorf("load document: no pages")
	}
	for i, pd := range pageDicts {
		page, err := p.buildPage(doc, pd, i)
		if err != nil {
			return nil, fmt.Errorf("load document: page %d: %w", i+1, err)
		}
		doc.pages = append(doc.pages, page)
	}
	p.buildForm(doc)
	return doc, nil
}

type parser struct {
	data    []byte
	pos     int
	offsets map[int]int
	cache   map[int]rawObj
	loading map[int]bool
}

// inherited carries the page-tree attributes that flow down to leaves.
type inherited struct {
	mediaBox  rawArr
	resources rawDict
	rotate    *int
}

func (p *parser) walkPageTree(node rawDict, inh inherited, out *[]rawDict, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}
	if mb, ok := p.resolve(node["MediaBox"]).(rawArr); ok {
		inh.mediaBox = mb
	}
	if res, ok := p.resolve(node["Resources"]).(rawDict); ok {
		inh.resources = res
	}
	if rot, ok := dictInt(node, "Rotate"); ok {
		inh.rotate = &rot
	}
	switch dictName(node, "Type") {
	case "Pages", "":
		kids, ok := p.resolve(node["Kids"]).(rawArr)
		if !ok {
			return fmt.Errorf("pages node without kids")
		}
		for _, kid := range kids {
			kd, ok := p.resolve(kid).(rawDict)
			if !ok {
				continue
			}
			if err := p.walkPageTree(kd, inh, out, depth+1); err != nil {
				return err
			}
		}
	case "Page":
		leaf := copyRawDict(node)
		if _, ok := leaf["MediaBox"]; !ok && inh.mediaBox != nil {
			leaf["MediaBox"] = inh.mediaBox
		}
		if _, ok := leaf["Resources"]; !ok && inh.resources != nil {
			leaf["Resources"] = inh.resources
		}
		if _, ok := leaf["Rotate"]; !ok && inh.rotate != nil {
			leaf["Rotate"] = float64(*inh.rotate)
		}
		*out = append(*out, leaf)
	}
	return nil
}

func (p *parser) buildPage(doc *Document, pd rawDict, pageIndex int) (*Page, error) {
	width, height := 612.0, 792.0
	if mb, ok := p.resolve(pd["MediaBox"]).(rawArr); ok && len(mb) == 4 {
		llx, _ := numberOf(p.resolve(mb[0]))
		lly, _ := numberOf(p.resolve(mb[1]))
		urx, _ := numberOf(p.resolve(mb[2]))
		ury, _ := numberOf(p.resolve(mb[3]))
		if urx > llx && ury > lly {
			width, height = urx-llx, ury-lly
		}
	}
	page := newPage(doc, width, height)
	if rot, ok := dictInt(pd, "Rotate"); ok {
		page.SetRotation(rot)
	}
	if res, ok := p.resolve(pd["Resources"]).(rawDict); ok {
		page.rawResources, _ = p.inline(res, 0).(rawDict)
	}
	switch contents := p.resolve(pd["Contents"]).(type) {
	case rawStream:
		page.rawContents = []rawStream{contents}
	case rawArr:
		for _, item := range contents {
			if s, ok := p.resolve(item).(rawStream); ok {
				page.rawContents = append(page.rawContents, s)
			}
		}
	}
	if annots, ok := p.resolve(pd["Annots"]).(rawArr); ok {
		for _, item := range annots {
			ad, ok := p.resolve(item).(rawDict)
			if !ok {
				continue
			}
			if dictName(ad, "Subtype") == "Widget" {
				if w := p.widgetFromDict(ad, pageIndex); w != nil {
					page.widgets = append(page.widgets, w)
				}
				continue
			}
			if kept := p.keepAnnotation(ad); kept != nil {
				page.rawAnnots = append(page.rawAnnots, kept)
			}
		}
	}
	return page, nil
}

// keepAnnotation preserves a non-widget annotation (links, existing
// markup) across the edit cycle, restricted to self-contained keys so
// no page back-references get inlined.
func (p *parser) keepAnnotation(ad rawDict) rawObj {
	kept := rawDict{"Type": rawName("Annot")}
	for _, key := range []string{"Subtype", "Rect", "Contents", "C", "F", "Border", "A", "QuadPoints"} {
		if v, ok := ad[key]; ok {
			kept[key] = p.inline(v, 0)
		}
	}
	if _, ok := kept["Subtype"]; !ok {
		return nil
	}
	return kept
}

func (p *parser) widgetFromDict(ad rawDict, pageIndex int) *Widget {
	fieldDict := ad
	if _, hasFT := ad["FT"]; !hasFT {
		if parent, ok := p.resolve(ad["Parent"]).(rawDict); ok {
			fieldDict = parent
		}
	}
	ft := dictName(fieldDict, "FT")
	if ft == "" {
		ft = dictName(ad, "FT")
	}
	switch ft {
	case "Tx", "Btn", "Ch":
	default:
		return nil // unrecognized widget subtype; skipped, not fatal
	}
	w := &Widget{FieldType: ft, PageIndex: pageIndex}
	if name, ok := dictString(ad, "T"); ok {
		w.Name = name
	} else if name, ok := dictString(fieldDict, "T"); ok {
		w.Name = name
	}
	if flags, ok := dictInt(fieldDict, "Ff"); ok {
		w.Flags = flags
	}
	if rect, ok := p.resolve(ad["Rect"]).(rawArr); ok && len(rect) == 4 {
		llx, _ := numberOf(p.resolve(rect[0]))
		lly, _ := numberOf(p.resolve(rect[1]))
		urx, _ := numberOf(p.resolve(rect[2]))
		ury, _ := numberOf(p.resolve(rect[3]))
		w.Rect = geom.Rect{X: llx, Y: lly, Width: urx - llx, Height: ury - lly}
	}
	w.Value = p.fieldValue(fieldDict, "V")
	w.Default = p.fieldValue(fieldDict, "DV")
	if maxLen, ok := dictInt(fieldDict, "MaxLen"); ok {
		w.MaxLen = maxLen
	}
	if opts, ok := p.resolve(fieldDict["Opt"]).(rawArr); ok {
		for _, o := range opts {
			switch ov := p.resolve(o).(type) {
			case rawString:
				w.Options = append(w.Options, decodeTextString(ov))
			case rawArr:
				if len(ov) > 0 {
					if s, ok := p.resolve(ov[0]).(rawString); ok {
						w.Options = append(w.Options, decodeTextString(s))
					}
				}
			}
		}
	}
	w.OnState = p.onStateOf(ad)
	w.CalcScript = p.calcActionOf(ad, fieldDict)
	return w
}

// calcActionOf extracts the JavaScript body of a field's calculate
// action (/AA /C). The action may sit on the widget annotation or on
// its parent field dictionary, and /JS may be a literal string or a
// stream.
func (p *parser) calcActionOf(dicts ...rawDict) string {
	for _, d := range dicts {
		aa, ok := p.resolve(d["AA"]).(rawDict)
		if !ok {
			continue
		}
		c, ok := p.resolve(aa["C"]).(rawDict)
		if !ok {
			continue
		}
		if s := dictName(c, "S"); s != "" && s != "JavaScript" {
			continue
		}
		switch js := p.resolve(c["JS"]).(type) {
		case rawString:
			return decodeTextString(js)
		case rawStream:
			if dictName(js.Dict, "Filter") == "FlateDecode" {
				if body, err := inflate(js.Data); err == nil {
					return string(body)
				}
				continue
			}
			return string(js.Data)
		}
	}
	return ""
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// fieldValue renders V or DV as a string regardless of whether it is a
// text string (text fields) or a name (buttons).
func (p *parser) fieldValue(fieldDict rawDict, key string) string {
	switch v := p.resolve(fieldDict[key]).(type) {
	case rawString:
		return decodeTextString(v)
	case rawName:
		return string(v)
	}
	return ""
}

// onStateOf finds a button widget's "on" appearance state name.
func (p *parser) onStateOf(ad rawDict) string {
	ap, ok := p.resolve(ad["AP"]).(rawDict)
	if !ok {
		return ""
	}
	n, ok := p.resolve(ap["N"]).(rawDict)
	if !ok {
		return ""
	}
	for key := range n {
		if key != "Off" {
			return key
		}
	}
	return ""
}

// buildForm turns detected page widgets into the document's typed form
// fields, grouping radio widgets that share a field name.
func (p *parser) buildForm(doc *Document) {
	radios := make(map[string]*RadioGroupField)
	for pageIndex, page := range doc.pages {
		for _, w := range page.widgets {
			base := BaseFormField{Name: w.Name, PageIndex: pageIndex, Rect: w.Rect, Flags: w.Flags}
			switch w.FieldType {
			case "Tx":
				doc.Form().AddField(&TextField{
					BaseFormField: base,
					Value:         w.Value,
					DefaultValue:  w.Default,
					MaxLen:        w.MaxLen,
				})
			case "Ch":
				dd := &DropdownField{BaseFormField: base, Options: w.Options}
				if w.Value != "" {
					dd.Selected = []string{w.Value}
				}
				if w.Default != "" {
					dd.DefaultSelected = []string{w.Default}
				}
				doc.Form().AddField(dd)
			case "Btn":
				if w.Flags&FlagPushButton != 0 {
					continue // push buttons carry no value state
				}
				if w.Flags&FlagRadio != 0 {
					rg, ok := radios[w.Name]
					if !ok {
						rg = &RadioGroupField{BaseFormField: base}
						rg.Selected = w.Value
						radios[w.Name] = rg
						doc.Form().AddField(rg)
					}
					rg.Widgets = append(rg.Widgets, RadioWidget{
						PageIndex: pageIndex,
						Rect:      w.Rect,
						OnState:   w.OnState,
					})
					continue
				}
				onState := w.OnState
				if onState == "" {
					onState = "Yes"
				}
				doc.Form().AddField(&CheckboxField{
					BaseFormField:  base,
					Checked:        w.Value == onState,
					DefaultChecked: w.Default == onState,
					OnState:        onState,
				})
			}
		}
	}
}

// inline deep-resolves indirect references so the object survives on
// its own. Streams stay as-is; reference cycles and excessive depth
// degrade to nil rather than recursing forever.
func (p *parser) inline(o rawObj, depth int) rawObj {
	if depth > 16 {
		return nil
	}
	switch v := p.resolve(o).(type) {
	case rawDict:
		out := make(rawDict, len(v))
		for k, item := range v {
			if k == "Parent" || k == "P" {
				continue // back-references would pull in whole pages
			}
			out[k] = p.inline(item, depth+1)
		}
		return out
	case rawArr:
		out := make(rawArr, len(v))
		for i, item := range v {
			out[i] = p.inline(item, depth+1)
		}
		return out
	case rawStream:
		return rawStream{Dict: copyRawDict(v.Dict), Data: v.Data}
	default:
		return v
	}
}

func (p *parser) resolve(o rawObj) rawObj {
	ref, ok := o.(rawRef)
	if !ok {
		return o
	}
	if cached, ok := p.cache[ref.Num]; ok {
		return cached
	}
	if p.loading[ref.Num] {
		return nil
	}
	offset, ok := p.offsets[ref.Num]
	if !ok {
		return nil
	}
	p.loading[ref.Num] = true
	obj := p.parseIndirectAt(offset)
	delete(p.loading, ref.Num)
	p.cache[ref.Num] = obj
	return obj
}

// --- cross-reference loading ---

func (p *parser) loadXref() (rawDict, error) {
	start, err := p.findStartXref()
	if err != nil {
		return nil, err
	}
	var firstTrailer rawDict
	seen := make(map[int]bool)
	for {
		if seen[start] {
			return nil, fmt.Errorf("xref prev chain loops")
		}
		seen[start] = true
		trailer, err := p.parseXrefSection(start)
		if err != nil {
			return nil, err
		}
		if firstTrailer == nil {
			firstTrailer = trailer
		}
		prev, ok := dictInt(trailer, "Prev")
		if !ok {
			break
		}
		start = prev
	}
	return firstTrailer, nil
}

func (p *parser) findStartXref() (int, error) {
	tail := p.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	lex := &lexer{data: tail, pos: idx + len("startxref")}
	lex.skipSpace()
	n, ok := lex.readInt()
	if !ok || n < 0 || n >= len(p.data) {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return n, nil
}

func (p *parser) parseXrefSection(offset int) (rawDict, error) {
	lex := &lexer{data: p.data, pos: offset}
	lex.skipSpace()
	if !lex.consumeKeyword("xref") {
		return nil, fmt.Errorf("xref table not found at offset %d", offset)
	}
	for {
		lex.skipSpace()
		if lex.consumeKeyword("trailer") {
			break
		}
		first, ok := lex.readInt()
		if !ok {
			return nil, fmt.Errorf("malformed xref subsection header")
		}
		lex.skipSpace()
		count, ok := lex.readInt()
		if !ok {
			return nil, fmt.Errorf("malformed xref subsection header")
		}
		for i := 0; i < count; i++ {
			lex.skipSpace()
			off, ok := lex.readInt()
			if !ok {
				return nil, fmt.Errorf("malformed xref entry")
			}
			lex.skipSpace()
			if _, ok := lex.readInt(); !ok { // generation
				return nil, fmt.Errorf("malformed xref entry")
			}
			lex.skipSpace()
			kind := lex.next()
			num := first + i
			// Later sections win; earlier /Prev sections must not
			// overwrite entries already loaded.
			if kind == 'n' {
				if _, exists := p.offsets[num]; !exists {
					p.offsets[num] = off
				}
			}
		}
	}
	lex.skipSpace()
	trailer, ok := lex.readObject().(rawDict)
	if !ok {
		return nil, fmt.Errorf("malformed trailer dictionary")
	}
	return trailer, nil
}

// scanObjects sweeps the whole buffer for "N G obj" headers, the repair
// path for files whose xref is a stream or damaged.
func (p *parser) scanObjects() {
	data := p.data
	for i := 0; i+4 < len(data); i++ {
		if !bytes.HasPrefix(data[i:], []byte("obj")) {
			continue
		}
		if i > 0 && isRegular(data[i-1]) {
			continue
		}
		// Walk backwards over "N G ".
		j := i - 1
		for j >= 0 && isSpace(data[j]) {
			j--
		}
		genEnd := j + 1
		for j >= 0 && data[j] >= '0' && data[j] <= '9' {
			j--
		}
		genStart := j + 1
		if genStart == genEnd {
			continue
		}
		for j >= 0 && isSpace(data[j]) {
			j--
		}
		numEnd := j + 1
		for j >= 0 && data[j] >= '0' && data[j] <= '9' {
			j--
		}
		numStart := j + 1
		if numStart == numEnd {
			continue
		}
		num, err := strconv.Atoi(string(data[numStart:numEnd]))
		if err != nil {
			continue
		}
		p.offsets[num] = numStart
	}
}

// scanTrailer finds the last trailer dictionary in the buffer.
func (p *parser) scanTrailer() rawDict {
	idx := bytes.LastIndex(p.data, []byte("trailer"))
	if idx < 0 {
		return nil
	}
	lex := &lexer{data: p.data, pos: idx + len("trailer")}
	lex.skipSpace()
	trailer, _ := lex.readObject().(rawDict)
	return trailer
}

// parseIndirectAt parses "N G obj ... endobj" at the given offset and
// returns the contained object, attaching stream data when present.
func (p *parser) parseIndirectAt(offset int) rawObj {
	if offset < 0 || offset >= len(p.data) {
		return nil
	}
	lex := &lexer{data: p.data, pos: offset}
	lex.skipSpace()
	if _, ok := lex.readInt(); !ok {
		return nil
	}
	lex.skipSpace()
	if _, ok := lex.readInt(); !ok {
		return nil
	}
	lex.skipSpace()
	if !lex.consumeKeyword("obj") {
		return nil
	}
	lex.skipSpace()
	obj := lex.readObject()
	lex.skipSpace()
	if lex.consumeKeyword("stream") {
		dict, ok := obj.(rawDict)
		if !ok {
			return nil
		}
		// EOL after the stream keyword: CRLF or LF.
		if lex.pos < len(lex.data) && lex.data[lex.pos] == '\r' {
			lex.pos++
		}
		if lex.pos < len(lex.data) && lex.data[lex.pos] == '\n' {
			lex.pos++
		}
		length := -1
		if n, ok := numberOf(p.resolve(dict["Length"])); ok {
			length = int(n)
		}
		start := lex.pos
		if length < 0 || start+length > len(lex.data) {
			end := bytes.Index(lex.data[start:], []byte("endstream"))
			if end < 0 {
				return nil
			}
			length = end
		}
		return rawStream{Dict: dict, Data: append([]byte(nil), lex.data[start:start+length]...)}
	}
	return obj
}
