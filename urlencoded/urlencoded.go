// Package urlencoded reads an application/x-www-form-urlencoded request
// body into a url.Values map. Unlike multipart/form-data, the whole body
// is one query-string-shaped blob with no framing to walk, so there is no
// state machine here at all -- just a size-guarded read and a call to
// net/url.
package urlencoded

import (
	"fmt"
	"io"
	"net/url"
)

// DefaultMaxBytes bounds how much of the body Parse will read before
// giving up, guarding against an unbounded or maliciously large
// url-encoded body.
const DefaultMaxBytes = 1 << 20 // 1 MiB

// Parse reads r (stopping after maxBytes, or DefaultMaxBytes if maxBytes is
// <= 0) and decodes it as an application/x-www-form-urlencoded body.
func Parse(r io.Reader, maxBytes int64) (url.Values, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	limited := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("urlencoded: read body: %w", err)
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("urlencoded: body exceeds %d bytes", maxBytes)
	}

	v, err := url.ParseQuery(string(b))
	if err != nil {
		return nil, fmt.Errorf("urlencoded: %w", err)
	}
	return v, nil
}

// ParseString decodes s, already fully read into memory, as an
// application/x-www-form-urlencoded body. It is a thin wrapper around
// url.ParseQuery for callers that already hold the body as a string.
func ParseString(s string) (url.Values, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return nil, fmt.Errorf("urlencoded: %w", err)
	}
	return v, nil
}
