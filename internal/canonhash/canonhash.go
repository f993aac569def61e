// Package canonhash computes stable content hashes of structured payloads
// fetched from the upstream content service.
//
// The canonical form preserves key order as decoded off the wire (no
// sorting), uses compact separators, and escapes non-ASCII runes in their
// \uXXXX form, so identical payloads hash identically across runs and
// platforms. Registry files written by an earlier daemon generation with a
// different serialization will not match and trigger a one-time full
// resync (see DESIGN.md).
package canonhash

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// NullUUID is the sentinel identifier representing "no entity".
const NullUUID = "00000000-0000-0000-0000-000000000000"

// objectMember is one key/value pair of an object, in decode order.
type objectMember struct {
	key   string
	value *Value
}

// Value is a node in the order-preserving JSON tree: exactly one of its
// fields is meaningful, discriminated by kind.
type Value struct {
	kind    byte // 'o', 'a', 's', 'n', 'b', 'z' (null)
	object  []objectMember
	array   []*Value
	str     string
	number  json.Number
	boolean bool
}

// Decode parses raw JSON bytes into an order-preserving value tree.
func Decode(raw []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("canonhash: decode payload: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFromToken(dec, tok)
}

func decodeFromToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("canonhash: unexpected delimiter %q", t)
		}
	case string:
		return &Value{kind: 's', str: t}, nil
	case json.Number:
		return &Value{kind: 'n', number: t}, nil
	case bool:
		return &Value{kind: 'b', boolean: t}, nil
	case nil:
		return &Value{kind: 'z'}, nil
	default:
		return nil, fmt.Errorf("canonhash: unsupported token %T", tok)
	}
}

func decodeObject(dec *json.Decoder) (*Value, error) {
	v := &Value{kind: 'o'}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("canonhash: object key is not a string")
		}
		child, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		v.object = append(v.object, objectMember{key: key, value: child})
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return nil, err
	}
	return v, nil
}

func decodeArray(dec *json.Decoder) (*Value, error) {
	v := &Value{kind: 'a'}
	for dec.More() {
		child, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		v.array = append(v.array, child)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return nil, err
	}
	return v, nil
}

// FromAny builds an order-preserving value tree from an in-memory Go value
// (map[string]interface{}, []interface{}, and primitives), as produced by a
// decoded-then-constructed registry or test payload. Map key order is not
// guaranteed by Go, so for map inputs keys are sorted for determinism within
// this process; payloads decoded straight off the wire via Decode keep their
// original order instead, which is the canonical path in production.
func FromAny(v interface{}) (*Value, error) {
	switch t := v.(type) {
	case nil:
		return &Value{kind: 'z'}, nil
	case bool:
		return &Value{kind: 'b', boolean: t}, nil
	case string:
		return &Value{kind: 's', str: t}, nil
	case json.Number:
		return &Value{kind: 'n', number: t}, nil
	case float64:
		return &Value{kind: 'n', number: json.Number(strconv.FormatFloat(t, 'g', -1, 64))}, nil
	case int:
		return &Value{kind: 'n', number: json.Number(strconv.Itoa(t))}, nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := &Value{kind: 'o'}
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return nil, err
			}
			out.object = append(out.object, objectMember{key: k, value: child})
		}
		return out, nil
	case []interface{}:
		out := &Value{kind: 'a'}
		for _, item := range t {
			child, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out.array = append(out.array, child)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("canonhash: unsupported Go type %T", v)
	}
}

// Canonical renders the value tree to its canonical byte form: insertion
// order preserved, compact separators, non-ASCII escaped.
func (v *Value) Canonical() []byte {
	var buf bytes.Buffer
	v.writeTo(&buf)
	return buf.Bytes()
}

func (v *Value) writeTo(buf *bytes.Buffer) {
	switch v.kind {
	case 'z':
		buf.WriteString("null")
	case 'b':
		if v.boolean {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case 'n':
		buf.WriteString(v.number.String())
	case 's':
		writeEscapedString(buf, v.str)
	case 'a':
		buf.WriteByte('[')
		for i, item := range v.array {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.writeTo(buf)
		}
		buf.WriteByte(']')
	case 'o':
		buf.WriteByte('{')
		for i, m := range v.object {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeEscapedString(buf, m.key)
			buf.WriteByte(':')
			m.value.writeTo(buf)
		}
		buf.WriteByte('}')
	}
}

// writeEscapedString writes a JSON string literal with every rune outside
// the printable ASCII range escaped as \uXXXX (ensure_ascii-style), matching
// the control and quote/backslash escaping JSON requires.
func writeEscapedString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			switch {
			case r < 0x20 || r > 0x7e:
				writeUnicodeEscape(buf, r)
			default:
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	if r > 0xFFFF {
		// Encode as a UTF-16 surrogate pair, as ensure_ascii does for
		// astral-plane runes.
		r -= 0x10000
		hi := 0xD800 + (r >> 10)
		lo := 0xDC00 + (r & 0x3FF)
		fmt.Fprintf(buf, `\u%04x\u%04x`, hi, lo)
		return
	}
	fmt.Fprintf(buf, `\u%04x`, r)
}

// Hash returns the lowercase hex SHA-1 digest of raw's canonical form. raw
// must be valid JSON (an object, array, or scalar) as returned by an
// ObjectSource fetch or loaded from a Registry file.
func Hash(raw []byte) (string, error) {
	v, err := Decode(raw)
	if err != nil {
		return "", err
	}
	return hashValue(v), nil
}

// HashAny hashes an in-memory Go value (see FromAny for supported types).
func HashAny(v interface{}) (string, error) {
	tree, err := FromAny(v)
	if err != nil {
		return "", err
	}
	return hashValue(tree), nil
}

func hashValue(v *Value) string {
	h := sha1.New()
	_, _ = io.Copy(h, bytes.NewReader(v.Canonical()))
	return hex.EncodeToString(h.Sum(nil))
}
