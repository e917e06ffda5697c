package document

import "unicode/utf16"

// The raw object model mirrors the PDF object system just closely
// enough to carry original page resources and content through a
// load/edit/save cycle without interpreting them.

type rawObj interface{}

type rawName string

type rawString []byte

type rawRef struct {
	Num int
	Gen int
}

type rawDict map[string]rawObj

type rawArr []rawObj

// rawStream couples a stream dictionary with its still-encoded data.
// Filters are preserved verbatim; the writer re-emits the stream
// untouched.
type rawStream struct {
	Dict rawDict
	Data []byte
}

func copyRawDict(d rawDict) rawDict {
	if d == nil {
		return nil
	}
	out := make(rawDict, len(d))
	for k, v := range d {
		out[k] = copyRawObj(v)
	}
	return out
}

func copyRawObj(o rawObj) rawObj {
	switch v := o.(type) {
	case rawDict:
		return copyRawDict(v)
	case rawArr:
		out := make(rawArr, len(v))
		for i, item := range v {
			out[i] = copyRawObj(item)
		}
		return out
	case rawStream:
		return rawStream{Dict: copyRawDict(v.Dict), Data: v.Data}
	case rawString:
		return append(rawString(nil), v...)
	default:
		return o
	}
}

func dictName(d rawDict, key string) string {
	if n, ok := d[key].(rawName); ok {
		return string(n)
	}
	return ""
}

func dictNumber(d rawDict, key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func dictInt(d rawDict, key string) (int, bool) {
	v, ok := dictNumber(d, key)
	return int(v), ok
}

func dictString(d rawDict, key string) (string, bool) {
	if s, ok := d[key].(rawString); ok {
		return decodeTextString(s), true
	}
	return "", false
}

func numberOf(o rawObj) (float64, bool) {
	switch v := o.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// decodeTextString interprets a PDF text string: UTF-16BE when it opens
// with the byte order mark, byte-per-rune otherwise.
func decodeTextString(s rawString) string {
	if len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF {
		body := s[2:]
		units := make([]uint16, 0, len(body)/2)
		for i := 0; i+1 < len(body); i += 2 {
			units = append(units, uint16(body[i])<<8|uint16(body[i+1]))
		}
		return string(utf16.Decode(units))
	}
	out := make([]rune, len(s))
	for i, b := range s {
		out[i] = rune(b)
	}
	return string(out)
}
