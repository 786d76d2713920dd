package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	errs "github.com/matzehuels/multinet/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns data as BOM-less UTF-8. Payloads starting with a UTF-16
// byte order mark are transcoded; anything else must already be valid UTF-8.
func Decode(data []byte) ([]byte, error) {
	if hasUTF16BOM(data) {
		if len(data)%2 != 0 {
			return nil, errs.New(errs.ErrCodeDecode, "truncated UTF-16 payload")
		}
		if at := unpairedSurrogate(data); at >= 0 {
			return nil, errs.New(errs.ErrCodeDecode, "unpaired UTF-16 surrogate at byte %d", at)
		}
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeDecode, err, "transcode UTF-16 payload")
		}
		data = out
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errs.New(errs.ErrCodeDecode, "payload is not valid UTF-8 text")
	}
	return data, nil
}

// unpairedSurrogate returns the byte offset of the first surrogate code unit
// without a partner, or -1. data starts with a UTF-16 BOM, which sets the
// byte order. The decoder would otherwise substitute U+FFFD silently.
func unpairedSurrogate(data []byte) int {
	unit := func(i int) uint16 {
		if data[0] == 0xFF {
			return uint16(data[i]) | uint16(data[i+1])<<8
		}
		return uint16(data[i])<<8 | uint16(data[i+1])
	}
	for i := 2; i+1 < len(data); i += 2 {
		u := unit(i)
		switch {
		case utf16.IsSurrogate(rune(u)) && u < 0xDC00:
			if i+3 >= len(data) {
				return i
			}
			if next := unit(i + 2); next < 0xDC00 || next > 0xDFFF {
				return i
			}
			i += 2
		case utf16.IsSurrogate(rune(u)):
			return i
		}
	}
	return -1
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}

// unmarshalJSON decodes a single JSON value with numbers kept as
// json.Number, so integer ids above 2^53 stay distinct. Trailing data is a
// syntax error, as with json.Unmarshal.
func unmarshalJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("invalid data after top-level value at offset %d", dec.InputOffset())
	}
	return nil
}

// normalizeNumbers replaces json.Number values in v with int64 when the
// literal is an integer in range and float64 otherwise.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	}
	return v
}
