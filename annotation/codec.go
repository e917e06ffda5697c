package annotation

import (
	"encoding/json"
	"fmt"
)

// Flat envelopes: each variant marshals as its own fields plus a "kind"
// tag. Shape already carries the tag in its Variant field.

func (a *Highlight) MarshalJSON() ([]byte, error) { return tagged(KindHighlight, (*highlightAlias)(a)) }
func (a *Redaction) MarshalJSON() ([]byte, error) { return tagged(KindRedaction, (*redactionAlias)(a)) }
func (a *Pen) MarshalJSON() ([]byte, error)       { return tagged(KindPen, (*penAlias)(a)) }
func (a *Text) MarshalJSON() ([]byte, error)      { return tagged(KindText, (*textAlias)(a)) }
func (a *Note) MarshalJSON() ([]byte, error)      { return tagged(KindNote, (*noteAlias)(a)) }
func (a *Signature) MarshalJSON() ([]byte, error) { return tagged(KindSignature, (*signatureAlias)(a)) }

// alias types strip the MarshalJSON method so tagged can re-marshal
// without recursing.
type (
	highlightAlias Highlight
	redactionAlias Redaction
	penAlias       Pen
	textAlias      Text
	noteAlias      Note
	signatureAlias Signature
)

func tagged(kind Kind, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := []byte(fmt.Sprintf(`{"kind":%q,`, kind))
	if len(body) == 2 { // "{}"
		return append(head[:len(head)-1], '}'), nil
	}
	return append(head, body[1:]...), nil
}

// Marshal serializes a collection of annotations as a JSON array.
func Marshal(items []Annotation) (string, error) {
	raw := make([]json.RawMessage, 0, len(items))
	for _, a := range items {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("marshal annotation %s: %w", a.AnnotationID(), err)
		}
		raw = append(raw, b)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Unmarshal parses a serialized annotation array. Malformed JSON or a
// non-array top level fails the whole parse; entries with an unknown
// kind inside a valid array are skipped.
func Unmarshal(data string) ([]Annotation, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}
	out := make([]Annotation, 0, len(raw))
	for _, entry := range raw {
		var head struct {
			Kind Kind `json:"kind"`
		}
		if err := json.Unmarshal(entry, &head); err != nil {
			return nil, fmt.Errorf("parse annotation entry: %w", err)
		}
		a, err := decodeVariant(head.Kind, entry)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue // unknown kind
		}
		out = append(out, a)
	}
	return out, nil
}

func decodeVariant(kind Kind, entry json.RawMessage) (Annotation, error) {
	var (
		a   Annotation
		err error
	)
	switch kind {
	case KindHighlight:
		v := &Highlight{}
		err = json.Unmarshal(entry, (*highlightAlias)(v))
		a = v
	case KindRedaction:
		v := &Redaction{}
		err = json.Unmarshal(entry, (*redactionAlias)(v))
		a = v
	case KindPen:
		v := &Pen{}
		err = json.Unmarshal(entry, (*penAlias)(v))
		a = v
	case KindRectangle, KindCircle, KindArrow, KindLine:
		v := &Shape{}
		err = json.Unmarshal(entry, v)
		a = v
	case KindText:
		v := &Text{}
		err = json.Unmarshal(entry, (*textAlias)(v))
		a = v
	case KindNote:
		v := &Note{}
		err = json.Unmarshal(entry, (*noteAlias)(v))
		a = v
	case KindSignature:
		v := &Signature{}
		err = json.Unmarshal(entry, (*signatureAlias)(v))
		a = v
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s annotation: %w", kind, err)
	}
	return a, nil
}
