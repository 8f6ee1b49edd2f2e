// Package charset decodes header field bytes under an arbitrary IANA
// charset name. It exists because a multipart/form-data segment's headers
// are allowed to declare any charset in their own Content-Type option, and
// the bytes making up a header line must be decoded under the charset the
// caller configured before the line is split into a name and value.
//
// The lookup goes through golang.org/x/text/encoding/ianaindex directly,
// without any mime.WordDecoder indirection, since header lines are decoded
// whole rather than as RFC 2047 encoded words.
package charset

import (
	"fmt"
	"strings"

	_ "golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Decode converts b, understood to be encoded under the given IANA charset
// name, into a UTF-8 string. An empty or case-insensitively "utf-8" /
// "us-ascii" charset is treated as already-UTF-8 and returned unchanged, to
// avoid a lookup for the overwhelmingly common case.
func Decode(charsetName string, b []byte) (string, error) {
	switch strings.ToLower(charsetName) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return string(b), nil
	}

	enc, err := ianaindex.MIME.Encoding(charsetName)
	if err != nil {
		return "", fmt.Errorf("charset %q: %w", charsetName, err)
	}
	if enc == nil {
		return "", fmt.Errorf("charset %q: no encoding registered", charsetName)
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("charset %q: %w", charsetName, err)
	}
	return string(out), nil
}
