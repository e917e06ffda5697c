package document

import (
	"bytes"
	"strconv"
)

// lexer tokenizes PDF syntax: dictionaries, arrays, names, strings,
// numbers, references, and keywords.
type lexer struct {
	data []byte
	pos  int
}

func isSpace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isSpace(b) && !isDelimiter(b) }

func (l *lexer) next() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	b := l.data[l.pos]
	l.pos++
	return b
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.data) {
		return 0
	}
	return l.data[l.pos]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isSpace(b) {
			l.pos++
			continue
		}
		if b == '%' { // comment to end of line
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		break
	}
}

func (l *lexer) consumeKeyword(kw string) bool {
	if bytes.HasPrefix(l.data[l.pos:], []byte(kw)) {
		end := l.pos + len(kw)
		if end >= len(l.data) || !isRegular(l.data[end]) {
			l.pos = end
			return true
		}
	}
	return false
}

func (l *lexer) readInt() (int, bool) {
	start := l.pos
	if l.peek() == '+' || l.peek() == '-' {
		l.pos++
	}
	digits := 0
	for l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '9' {
		l.pos++
		digits++
	}
	if digits == 0 {
		l.pos = start
		return 0, false
	}
	n, err := strconv.Atoi(string(l.data[start:l.pos]))
	if err != nil {
		l.pos = start
		return 0, false
	}
	return n, true
}

// readObject parses one object at the current position. It returns nil
// for anything unparseable.
func (l *lexer) readObject() rawObj {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return nil
	}
	switch b := l.data[l.pos]; {
	case b == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case b == '[':
		return l.readArray()
	case b == '/':
		return l.readName()
	case b == '(':
		return l.readLiteralString()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return l.readNumberOrRef()
	default:
		if l.consumeKeyword("true") {
			return true
		}
		if l.consumeKeyword("false") {
			return false
		}
		if l.consumeKeyword("null") {
			return nil
		}
		// Unknown token; skip it so a malformed object cannot stall
		// the caller in place.
		for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
			l.pos++
		}
		return nil
	}
}

func (l *lexer) readDict() rawObj {
	l.pos += 2 // <<
	dict := make(rawDict)
	for {
		l.skipSpace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return dict
		}
		if l.pos >= len(l.data) {
			return dict
		}
		if l.data[l.pos] != '/' {
			// Key must be a name; bail out of a malformed dictionary.
			return dict
		}
		key, _ := l.readName().(rawName)
		value := l.readObject()
		dict[string(key)] = value
	}
}

func (l *lexer) readArray() rawObj {
	l.pos++ // [
	var arr rawArr
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return arr
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr
		}
		arr = append(arr, l.readObject())
	}
}

func (l *lexer) readName() rawObj {
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		b := l.data[l.pos]
		if b == '#' && l.pos+2 < len(l.data) {
			if hi, ok1 := hexVal(l.data[l.pos+1]); ok1 {
				if lo, ok2 := hexVal(l.data[l.pos+2]); ok2 {
					buf.WriteByte(byte(hi<<4 | lo))
					l.pos += 3
					continue
				}
			}
		}
		buf.WriteByte(b)
		l.pos++
	}
	return rawName(buf.String())
}

func hexVal(b byte) (int, bool) {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0'), true
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10, true
	}
	return 0, false
}

func (l *lexer) readLiteralString() rawObj {
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		b := l.next()
		switch b {
		case '\\':
			e := l.next()
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\n': // line continuation
			case '\r':
				if l.peek() == '\n' {
					l.pos++
				}
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := int(e - '0')
				for i := 0; i < 2 && l.pos < len(l.data); i++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + int(d-'0')
					l.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(e)
			}
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return rawString(buf.Bytes())
			}
			buf.WriteByte(b)
		default:
			buf.WriteByte(b)
		}
	}
	return rawString(buf.Bytes())
}

func (l *lexer) readHexString() rawObj {
	l.pos++ // <
	var buf bytes.Buffer
	var hi = -1
	for l.pos < len(l.data) {
		b := l.next()
		if b == '>' {
			break
		}
		v, ok := hexVal(b)
		if !ok {
			continue
		}
		if hi < 0 {
			hi = v
			continue
		}
		buf.WriteByte(byte(hi<<4 | v))
		hi = -1
	}
	if hi >= 0 { // odd digit count: final digit implies trailing zero
		buf.WriteByte(byte(hi << 4))
	}
	return rawString(buf.Bytes())
}

// readNumberOrRef reads a number, upgrading "N G R" sequences into an
// indirect reference.
func (l *lexer) readNumberOrRef() rawObj {
	start := l.pos
	if l.peek() == '+' || l.peek() == '-' {
		l.pos++
	}
	isInt := true
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b >= '0' && b <= '9' {
			l.pos++
			continue
		}
		if b == '.' {
			isInt = false
			l.pos++
			continue
		}
		break
	}
	text := string(l.data[start:l.pos])
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	if isInt && value >= 0 {
		// Lookahead for "G R".
		save := l.pos
		l.skipSpace()
		if gen, ok := l.readInt(); ok {
			l.skipSpace()
			if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
				(l.pos+1 >= len(l.data) || !isRegular(l.data[l.pos+1])) {
				l.pos++
				return rawRef{Num: int(value), Gen: gen}
			}
		}
		l.pos = save
	}
	return value
}
