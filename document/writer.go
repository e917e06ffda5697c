package document

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"sort"

	"golang.org/x/text/encoding/unicode"
)

// Save serializes the document to PDF bytes: classic cross-reference
// table, Flate-compressed edit streams, original page content and
// resources re-emitted untouched.
func (d *Document) Save(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.pages) == 0 {
		return nil, fmt.Errorf("save document: no pages")
	}
	if d.Form().Flattened() {
		d.flattenFormIntoPages()
	}
	w := newObjWriter()
	if err := w.buildDocument(d); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return w.emit(), nil
}

// objWriter assigns object numbers up front and collects serialized
// bodies, so objects can reference each other freely.
type objWriter struct {
	bodies  [][]byte
	infoNum int
	apNum   int
}

// emptyAppearance returns a shared blank form XObject used as the
// appearance stream of button widgets, so the on-state name survives in
// /AP /N even though NeedAppearances makes viewers regenerate visuals.
func (w *objWriter) emptyAppearance() int {
	if w.apNum != 0 {
		return w.apNum
	}
	n := w.alloc()
	w.set(n, []byte("<< /Type /XObject /Subtype /Form /BBox [0 0 1 1] /Length 0 >>\nstream\n\nendstream"))
	w.apNum = n
	return n
}

func newObjWriter() *objWriter { return &objWriter{} }

// alloc reserves the next object number (1-based).
func (w *objWriter) alloc() int {
	w.bodies = append(w.bodies, nil)
	return len(w.bodies)
}

func (w *objWriter) set(num int, body []byte) { w.bodies[num-1] = body }

func ref(num int) string { return fmt.Sprintf("%d 0 R", num) }

func (w *objWriter) buildDocument(d *Document) error {
	for _, page := range d.pages {
		page.pendingWidgetRefs = nil
	}

	catalogNum := w.alloc()
	pagesNum := w.alloc()

	pageNums := make([]int, len(d.pages))
	for i := range d.pages {
		pageNums[i] = w.alloc()
	}

	w.infoNum = w.alloc()
	w.set(w.infoNum, w.infoBody(d.info))

	fontNums := make(map[*Font]int)
	formNum := 0
	if !d.Form().Flattened() && len(d.Form().fields) > 0 {
		formNum = w.buildAcroForm(d, pageNums, fontNums)
	}

	for i, page := range d.pages {
		body, err := w.pageBody(d, page, pagesNum, pageNums[i], fontNums)
		if err != nil {
			return err
		}
		w.set(pageNums[i], body)
	}

	var pagesBuf bytes.Buffer
	pagesBuf.WriteString("<< /Type /Pages /Kids [")
	for _, n := range pageNums {
		fmt.Fprintf(&pagesBuf, " %s", ref(n))
	}
	fmt.Fprintf(&pagesBuf, " ] /Count %d >>", len(pageNums))
	w.set(pagesNum, pagesBuf.Bytes())

	var catBuf bytes.Buffer
	fmt.Fprintf(&catBuf, "<< /Type /Catalog /Pages %s", ref(pagesNum))
	if formNum != 0 {
		fmt.Fprintf(&catBuf, " /AcroForm %s", ref(formNum))
	}
	catBuf.WriteString(" >>")
	w.set(catalogNum, catBuf.Bytes())
	return nil
}

func (w *objWriter) infoBody(info Info) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<")
	writeEntry := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&buf, " /%s %s", key, textString(value))
		}
	}
	writeEntry("Title", info.Title)
	writeEntry("Author", info.Author)
	writeEntry("Subject", info.Subject)
	producer := info.Producer
	if producer == "" {
		producer = "pdfedit"
	}
	writeEntry("Producer", producer)
	buf.WriteString(" >>")
	return buf.Bytes()
}

func (w *objWriter) pageBody(d *Document, page *Page, pagesNum, pageNum int, fontNums map[*Font]int) ([]byte, error) {
	contentRefs, err := w.buildContents(page)
	if err != nil {
		return nil, err
	}
	resources := w.buildResources(page, fontNums)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Type /Page /Parent %s /MediaBox [0 0 %s %s]",
		ref(pagesNum), num(page.width), num(page.height))
	if page.rotate != 0 {
		fmt.Fprintf(&buf, " /Rotate %d", page.rotate)
	}
	buf.WriteString(" /Resources ")
	buf.Write(resources)
	if len(contentRefs) == 1 {
		fmt.Fprintf(&buf, " /Contents %s", ref(contentRefs[0]))
	} else if len(contentRefs) > 1 {
		buf.WriteString(" /Contents [")
		for _, n := range contentRefs {
			fmt.Fprintf(&buf, " %s", ref(n))
		}
		buf.WriteString(" ]")
	}
	annotRefs := w.buildAnnots(page, pageNum)
	if len(annotRefs) > 0 {
		buf.WriteString(" /Annots [")
		for _, n := range annotRefs {
			fmt.Fprintf(&buf, " %s", ref(n))
		}
		buf.WriteString(" ]")
	}
	buf.WriteString(" >>")
	return buf.Bytes(), nil
}

// buildContents emits the page's content streams: the original streams
// bracketed by a graphics-state save/restore, then the edit stream.
func (w *objWriter) buildContents(page *Page) ([]int, error) {
	var refs []int
	hasOriginal := len(page.rawContents) > 0
	if hasOriginal {
		refs = append(refs, w.plainStream([]byte("q\n")))
		for _, s := range page.rawContents {
			refs = append(refs, w.rawStreamObject(s))
		}
	}
	if page.edits.Len() > 0 || !hasOriginal {
		var edit bytes.Buffer
		if hasOriginal {
			edit.WriteString("Q\n")
		}
		edit.Write(page.edits.Bytes())
		refs = append(refs, w.flateStream(edit.Bytes()))
	} else if hasOriginal {
		refs = append(refs, w.plainStream([]byte("Q\n")))
	}
	return refs, nil
}

func (w *objWriter) buildResources(page *Page, fontNums map[*Font]int) []byte {
	res := copyRawDict(page.rawResources)
	if res == nil {
		res = rawDict{}
	}
	if len(page.fonts) > 0 {
		fonts, _ := res["Font"].(rawDict)
		if fonts == nil {
			fonts = rawDict{}
		}
		for name, font := range page.fonts {
			fonts[name] = rawRef{Num: w.fontObject(font, fontNums)}
		}
		res["Font"] = fonts
	}
	if len(page.images) > 0 {
		xobjects, _ := res["XObject"].(rawDict)
		if xobjects == nil {
			xobjects = rawDict{}
		}
		for name, img := range page.images {
			xobjects[name] = rawRef{Num: w.imageObject(img)}
		}
		res["XObject"] = xobjects
	}
	if len(page.alphas) > 0 {
		states, _ := res["ExtGState"].(rawDict)
		if states == nil {
			states = rawDict{}
		}
		for name, alpha := range page.alphas {
			states[name] = rawDict{"Type": rawName("ExtGState"), "ca": alpha, "CA": alpha}
		}
		res["ExtGState"] = states
	}
	if _, ok := res["ProcSet"]; !ok {
		res["ProcSet"] = rawArr{rawName("PDF"), rawName("Text"), rawName("ImageB"), rawName("ImageC")}
	}
	return w.serializeRaw(res)
}

func (w *objWriter) buildAnnots(page *Page, pageNum int) []int {
	var refs []int
	for _, annot := range page.rawAnnots {
		numObj := w.alloc()
		w.set(numObj, w.serializeRaw(annot))
		refs = append(refs, numObj)
	}
	refs = append(refs, page.pendingWidgetRefs...)
	return refs
}

// --- streams ---

func (w *objWriter) plainStream(data []byte) int {
	n := w.alloc()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Length %d >>\nstream\n", len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	w.set(n, buf.Bytes())
	return n
}

func (w *objWriter) flateStream(data []byte) int {
	n := w.alloc()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(data)
	zw.Close()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< /Length %d /Filter /FlateDecode >>\nstream\n", compressed.Len())
	buf.Write(compressed.Bytes())
	buf.WriteString("\nendstream")
	w.set(n, buf.Bytes())
	return n
}

// rawStreamObject re-emits a stream loaded from the source file with
// its dictionary (filters included) untouched, fixing only /Length.
func (w *objWriter) rawStreamObject(s rawStream) int {
	n := w.alloc()
	dict := copyRawDict(s.Dict)
	if dict == nil {
		dict = rawDict{}
	}
	dict["Length"] = float64(len(s.Data))
	var buf bytes.Buffer
	buf.Write(w.serializeRaw(dict))
	buf.WriteString("\nstream\n")
	buf.Write(s.Data)
	buf.WriteString("\nendstream")
	w.set(n, buf.Bytes())
	return n
}

// --- fonts and images ---

func (w *objWriter) fontObject(f *Font, fontNums map[*Font]int) int {
	if n, ok := fontNums[f]; ok {
		return n
	}
	n := w.alloc()
	fontNums[f] = n
	if f.ttf == nil {
		w.set(n, []byte(fmt.Sprintf(
			"<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", f.BaseFont)))
		return n
	}
	w.set(n, w.type0FontBody(f))
	return n
}

func (w *objWriter) type0FontBody(f *Font) []byte {
	t := f.ttf
	fileNum := w.alloc()
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(t.data)
	zw.Close()
	var fileBuf bytes.Buffer
	fmt.Fprintf(&fileBuf, "<< /Length %d /Filter /FlateDecode /Length1 %d >>\nstream\n",
		compressed.Len(), len(t.data))
	fileBuf.Write(compressed.Bytes())
	fileBuf.WriteString("\nendstream")
	w.set(fileNum, fileBuf.Bytes())

	descNum := w.alloc()
	w.set(descNum, []byte(fmt.Sprintf(
		"<< /Type /FontDescriptor /FontName /%s /Flags 4 /FontBBox [%s %s %s %s] /ItalicAngle 0 /Ascent %s /Descent %s /CapHeight %s /StemV 80 /FontFile2 %s >>",
		f.BaseFont, num(t.bbox[0]), num(t.bbox[1]), num(t.bbox[2]), num(t.bbox[3]),
		num(t.ascent), num(t.descent), num(t.ascent), ref(fileNum))))

	cidNum := w.alloc()
	var widths bytes.Buffer
	ids := make([]int, 0, len(t.usedGlyphs))
	for id := range t.usedGlyphs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Fprintf(&widths, " %d [%s]", id, num(t.usedGlyphs[id]))
	}
	w.set(cidNum, []byte(fmt.Sprintf(
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /%s /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %s /DW 1000 /W [%s ] /CIDToGIDMap /Identity >>",
		f.BaseFont, ref(descNum), widths.String())))

	return []byte(fmt.Sprintf(
		"<< /Type /Font /Subtype /Type0 /BaseFont /%s /Encoding /Identity-H /DescendantFonts [%s] >>",
		f.BaseFont, ref(cidNum)))
}

func (w *objWriter) imageObject(img *Image) int {
	n := w.alloc()
	var buf bytes.Buffer
	if img.jpegData != nil {
		fmt.Fprintf(&buf,
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
			img.Width, img.Height, len(img.jpegData))
		buf.Write(img.jpegData)
		buf.WriteString("\nendstream")
		w.set(n, buf.Bytes())
		return n
	}
	smaskRef := ""
	if img.alpha != nil {
		smaskNum := w.alloc()
		var alphaCompressed bytes.Buffer
		zw := zlib.NewWriter(&alphaCompressed)
		zw.Write(img.alpha)
		zw.Close()
		var smaskBuf bytes.Buffer
		fmt.Fprintf(&smaskBuf,
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode /Length %d >>\nstream\n",
			img.Width, img.Height, alphaCompressed.Len())
		smaskBuf.Write(alphaCompressed.Bytes())
		smaskBuf.WriteString("\nendstream")
		w.set(smaskNum, smaskBuf.Bytes())
		smaskRef = fmt.Sprintf(" /SMask %s", ref(smaskNum))
	}
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(img.rgb)
	zw.Close()
	fmt.Fprintf(&buf,
		"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /FlateDecode%s /Length %d >>\nstream\n",
		img.Width, img.Height, smaskRef, compressed.Len())
	buf.Write(compressed.Bytes())
	buf.WriteString("\nendstream")
	w.set(n, buf.Bytes())
	return n
}

// --- raw object serialization ---

func (w *objWriter) serializeRaw(o rawObj) []byte {
	var buf bytes.Buffer
	w.writeRaw(&buf, o)
	return buf.Bytes()
}

func (w *objWriter) writeRaw(buf *bytes.Buffer, o rawObj) {
	switch v := o.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		buf.WriteString(num(v))
	case int:
		fmt.Fprintf(buf, "%d", v)
	case rawName:
		buf.WriteByte('/')
		buf.WriteString(escapeName(string(v)))
	case rawString:
		writeLiteralString(buf, []byte(v))
	case rawRef:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case rawArr:
		buf.WriteString("[")
		for _, item := range v {
			buf.WriteByte(' ')
			w.writeRaw(buf, item)
		}
		buf.WriteString(" ]")
	case rawDict:
		buf.WriteString("<<")
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(" /")
			buf.WriteString(escapeName(k))
			buf.WriteByte(' ')
			w.writeRaw(buf, v[k])
		}
		buf.WriteString(" >>")
	case rawStream:
		// Streams must live as indirect objects; hoist and reference.
		fmt.Fprintf(buf, "%s", ref(w.rawStreamObject(v)))
	default:
		buf.WriteString("null")
	}
}

func escapeName(name string) string {
	var buf bytes.Buffer
	for i := 0; i < len(name); i++ {
		b := name[i]
		if isRegular(b) && b != '#' && b > 0x20 && b < 0x7f {
			buf.WriteByte(b)
			continue
		}
		fmt.Fprintf(&buf, "#%02X", b)
	}
	return buf.String()
}

func writeLiteralString(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

// textString serializes a document text string: plain latin text stays
// a literal string, anything else becomes a UTF-16BE hex string with a
// byte order mark.
func textString(s string) string {
	ascii := true
	for _, r := range s {
		if r > 0x7e || r < 0x20 {
			ascii = false
			break
		}
	}
	if ascii {
		var buf bytes.Buffer
		writeLiteralString(&buf, []byte(s))
		return buf.String()
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	encoded, err := enc.Bytes([]byte(s))
	if err != nil {
		var buf bytes.Buffer
		writeLiteralString(&buf, []byte(s))
		return buf.String()
	}
	var buf bytes.Buffer
	buf.WriteByte('<')
	for _, b := range encoded {
		fmt.Fprintf(&buf, "%02X", b)
	}
	buf.WriteByte('>')
	return buf.String()
}

// emit assembles the final file: header, bodies, xref table, trailer.
func (w *objWriter) emit() []byte {
	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(w.bodies))
	for i, body := range w.bodies {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}
	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(w.bodies)+1)
	out.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(w.bodies)+1, w.infoNum, xrefStart)
	return out.Bytes()
}
