// Package digest computes the content digest that anchors a log record.
//
// The digest is SHA-256 over
//
//	event_type ":" severity ":" canonical(data)
//
// where canonical(data) is compact JSON with object keys sorted bytewise at
// every depth. Numbers are copied verbatim from the input so no precision is
// lost to a float round trip. Two payloads that differ only in key order or
// whitespace therefore share a digest.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/valyala/fastjson"
)

// ErrInvalidPayload is returned when the data document is not valid JSON.
var ErrInvalidPayload = errors.New("payload is not representable as JSON")

var parserPool fastjson.ParserPool

// Compute returns the lowercase hex SHA-256 digest of the record fields.
// An empty data document is treated as JSON null.
func Compute(eventType, severity string, data []byte) (string, error) {
	canon, err := Canonical(data)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(eventType))
	h.Write([]byte{':'})
	h.Write([]byte(severity))
	h.Write([]byte{':'})
	h.Write(canon)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical re-encodes a JSON document with sorted object keys and no
// insignificant whitespace.
func Canonical(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []byte("null"), nil
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v *fastjson.Value) error {
	switch v.Type() {
	case fastjson.TypeObject:
		// Later duplicates win, matching encoding/json and Postgres JSONB.
		obj, _ := v.Object()
		fields := make(map[string]*fastjson.Value, obj.Len())
		obj.Visit(func(k []byte, fv *fastjson.Value) {
			fields[string(k)] = fv
		})
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, fields[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case fastjson.TypeArray:
		arr, _ := v.Array()
		buf.WriteByte('[')
		for i, el := range arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case fastjson.TypeString:
		s, _ := v.StringBytes()
		return writeString(buf, string(s))

	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse, fastjson.TypeNull:
		// MarshalTo emits the original token for numbers and literals.
		buf.Write(v.MarshalTo(nil))

	default:
		return fmt.Errorf("%w: unexpected value type %s", ErrInvalidPayload, v.Type())
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	buf.Write(b)
	return nil
}
