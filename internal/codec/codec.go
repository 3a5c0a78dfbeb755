// Package codec implements the canonical on-disk serialization form
// used by every persisted value in the cache: self-describing JSON
// with stable field order, exposed as to-string, to-writer, and
// from-reader surfaces as required by spec.md §4.C.
package codec

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// indent controls pretty-printing of the canonical form. Identity
// hashes are computed over the exact bytes written, which always
// include this formatting, so changing it changes every identity: the
// formatting itself is part of the cache's contract.
const indent = "  "

// ToString serializes a canonical value to its string form.
func ToString(v interface{}) (string, error) {
	var buffer bytes.Buffer
	if err := ToWriter(&buffer, v); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// ToWriter serializes a canonical value, streaming it to w. This is
// the form used for large blobs so that the entire value need not be
// buffered in memory before being written.
func ToWriter(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", indent)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "unable to encode value")
	}
	return nil
}

// FromReader deserializes a canonical value from r into v, which must
// be a pointer to a compatible type.
func FromReader(r io.Reader, v interface{}) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrap(err, "unable to decode value")
	}
	return nil
}

// FromString deserializes a canonical value from its string form.
func FromString(s string, v interface{}) error {
	return FromReader(bytes.NewReader([]byte(s)), v)
}
