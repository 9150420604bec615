// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// serialization and deterministic SHA-256 content hashing. Every hash in the
// verification and receipt layers is computed over this canonical form, so
// two structurally identical values always hash identically regardless of
// map key insertion order or struct field layout.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// CanonicalJSON returns the RFC 8785 canonical JSON form of v.
//
// Properties:
//  1. Object keys are sorted by UTF-16 code units, per RFC 8785 §3.2.3.
//  2. HTML escaping is disabled (standard json.Marshal escapes <, >, &).
//  3. Numbers round-trip through json.Number so their literal form is kept.
//
// v is first marshalled with encoding/json so struct tags are respected, then
// re-decoded into generic form and re-encoded canonically.
func CanonicalJSON(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: pre-marshal failed: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(intermediate))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}

	return encodeCanonical(generic)
}

// ContentHash returns the SHA-256 hex digest of the canonical JSON form of v.
// This is the load-bearing primitive: identical logical content produces the
// identical hash across processes and runs, and any mutation changes it.
func ContentHash(v any) (string, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes returns the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TextHash returns the SHA-256 hex digest of a text string after trimming and
// Unicode NFC normalization. Used for query hashes in safety decision records
// so that visually identical input hashes identically.
func TextHash(text string) string {
	return HashBytes([]byte(norm.NFC.String(strings.TrimSpace(text))))
}

// utf16Less orders strings by UTF-16 code units, the key ordering RFC 8785
// mandates. It diverges from byte order only for keys mixing supplementary
// plane characters (encoded as surrogate pairs) with high BMP characters.
func utf16Less(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

func encodeCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // RFC 8785 forbids HTML escaping

	switch t := v.(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if t {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case json.Number:
		return []byte(t.String()), nil
	case string:
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	case []any:
		buf.Reset()
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := encodeCanonical(elem)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case map[string]any:
		buf.Reset()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return utf16Less(keys[i], keys[j]) })

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := encodeCanonical(k)
			if err != nil {
				return nil, err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := encodeCanonical(t[k])
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
	}
}
