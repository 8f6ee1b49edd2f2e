package param

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known parameter names.
const (
	Charset  = "charset"
	Boundary = "boundary"
	Filename = "filename"
	Name     = "name"
)

// Value represents a parsed structured header value: a primary token (e.g.
// "multipart/form-data" or "form-data") plus zero or more "key=value"
// options. A Value is immutable once parsed.
type Value struct {
	primary string
	params  map[string]string
}

// New creates a Value with no parameters. Unlike Parse, New does not
// lowercase primary; it is stored as given.
func New(primary string) *Value {
	return &Value{primary: primary, params: map[string]string{}}
}

// Primary returns the primary token, lowercased, e.g. "multipart/form-data"
// or "form-data".
func (v *Value) Primary() string { return v.primary }

// Type returns the part of Primary() before the first '/', or "" if there is
// no slash. Intended for Content-Type values.
func (v *Value) Type() string {
	if ix := strings.IndexByte(v.primary, '/'); ix >= 0 {
		return v.primary[:ix]
	}
	return ""
}

// Subtype returns the part of Primary() after the first '/', or "" if there
// is no slash. Intended for Content-Type values.
func (v *Value) Subtype() string {
	if ix := strings.IndexByte(v.primary, '/'); ix >= 0 {
		return v.primary[ix+1:]
	}
	return ""
}

// Parameters returns the full parameter map. Callers must not modify it.
func (v *Value) Parameters() map[string]string {
	return v.params
}

// Parameter returns the named option's value and whether it was present.
func (v *Value) Parameter(name string) (string, bool) {
	s, ok := v.params[strings.ToLower(name)]
	return s, ok
}

// Boundary is a synonym for Parameter(Boundary), intended for Content-Type.
func (v *Value) Boundary() string { s, _ := v.Parameter(Boundary); return s }

// Charset is a synonym for Parameter(Charset), intended for Content-Type.
func (v *Value) Charset() string { s, _ := v.Parameter(Charset); return s }

// Filename is a synonym for Parameter(Filename), intended for
// Content-Disposition.
func (v *Value) Filename() string { s, _ := v.Parameter(Filename); return s }

// String serializes the Value back into "primary; key=value; ..." form,
// with parameter names sorted for determinism.
func (v *Value) String() string {
	keys := make([]string, 0, len(v.params))
	for k := range v.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, v.primary)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, quoteLegacy(v.params[k])))
	}
	return strings.Join(parts, "; ")
}

// quoteLegacy escapes backslashes and double quotes using the legacy RFC
// quoted-string convention, the inverse of dequoteLegacy.
func quoteLegacy(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// separatorByte is the RFC 2045 tspecials set plus '{', '}', space and tab:
// the characters a bare token may not contain.
const separatorByte = "()<>@,;:\\\"/[]?={} \t"

func isTokenChar(b byte) bool {
	return b > 0x20 && b < 0x7f && !strings.ContainsRune(separatorByte, rune(b))
}

// Parse parses a structured header value of the form
//
//	primary; key=value; key="quoted value"; ...
//
// Quoted values may use either the legacy RFC backslash-escape convention
// (\\ -> \, \" -> ") or, for any option whose name is "filename", the
// WHATWG percent-escape convention (%0D, %0A, %22 decoding to CR, LF, ")
// that browsers use when submitting multipart/form-data. Both are applied
// to a dequoted filename value; the legacy convention alone is applied to
// every other quoted option.
//
// The filename option additionally gets the IE6 basename fix (see
// applyIE6Fix) applied to its raw, still-escaped quoted-string interior,
// before legacy unescaping runs, not after. The legacy unescape collapses
// a doubled backslash to one, so running it first would turn a UNC path
// like `\\server\share\photo.jpg` into `\server\share\photo.jpg` before
// the prefix check ever saw the `\\`.
func Parse(s string) (*Value, error) {
	primary, rest := splitPrimary(s)
	if primary == "" {
		return nil, fmt.Errorf("param: empty primary value")
	}

	v := &Value{primary: primary, params: map[string]string{}}

	for len(rest) > 0 {
		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		if rest[0] != ';' {
			return nil, fmt.Errorf("param: expected ';' before option, got %q", rest)
		}
		rest = strings.TrimLeft(rest[1:], " \t")
		if rest == "" {
			break
		}

		name, raw, quoted, remainder, err := parseOption(rest)
		if err != nil {
			return nil, err
		}
		rest = remainder

		var value string
		switch {
		case strings.EqualFold(name, Filename):
			fixed := raw
			if quoted {
				fixed = dequoteLegacy(applyIE6Fix(raw))
			}
			value = dequoteWHATWG(fixed)
		case quoted:
			value = dequoteLegacy(raw)
		default:
			value = raw
		}

		v.params[strings.ToLower(name)] = value
	}

	return v, nil
}

// splitPrimary splits off the primary token (everything up to the first
// ';'), lowercased and stripped, returning it along with whatever follows
// the ';' (including the ';' itself, or "" if there were no options).
func splitPrimary(s string) (primary string, rest string) {
	if ix := strings.IndexByte(s, ';'); ix >= 0 {
		return strings.ToLower(strings.TrimSpace(s[:ix])), s[ix:]
	}
	return strings.ToLower(strings.TrimSpace(s)), ""
}

// parseOption parses one "key=value" pair from the front of s, where value
// is either a bare token or a quoted string, and returns the name, the raw
// value (the bare token, or the still-escaped interior of a quoted string),
// whether the value was quoted, and whatever remains of s after the value.
//
// The raw quoted-string interior is returned undequoted because the filename
// option needs to inspect it (for the IE6 path prefix) before any escape
// convention is applied; see Parse.
func parseOption(s string) (name, value string, quoted bool, rest string, err error) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", "", false, "", fmt.Errorf("param: option missing '=' in %q", s)
	}
	name = strings.TrimSpace(s[:eq])
	if name == "" {
		return "", "", false, "", fmt.Errorf("param: option has empty name in %q", s)
	}
	body := s[eq+1:]

	if len(body) > 0 && body[0] == '"' {
		value, rest, err = parseQuotedString(body)
		if err != nil {
			return "", "", false, "", err
		}
		return name, value, true, rest, nil
	}

	i := 0
	for i < len(body) && isTokenChar(body[i]) {
		i++
	}
	if i == 0 {
		return "", "", false, "", fmt.Errorf("param: option %q has no value", name)
	}
	return name, body[:i], false, body[i:], nil
}

// parseQuotedString consumes a double-quoted string (with backslash
// escapes) from the front of s, which must begin with '"'. It returns the
// raw interior (still backslash-escaped; dequoting is the caller's job) and
// whatever follows the closing quote.
func parseQuotedString(s string) (interior, rest string, err error) {
	if len(s) == 0 || s[0] != '"' {
		return "", "", fmt.Errorf("param: expected opening quote in %q", s)
	}
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '"' {
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(c)
		i++
	}
	return "", "", fmt.Errorf("param: unterminated quoted string in %q", s)
}

// dequoteLegacy applies the RFC quoted-string escape convention: \\ -> \
// and \" -> ". A backslash before any other character is left alone, since
// it isn't an escape sequence under this convention -- notably, a Windows
// path's single backslashes (as in `C:\fakepath`) come through unchanged.
func dequoteLegacy(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '"') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// dequoteWHATWG additionally decodes the percent-escapes browsers use when
// submitting filenames in multipart/form-data: %0D, %0A, %22 decode to CR,
// LF, and '"' respectively. Any other percent sequence is left untouched.
func dequoteWHATWG(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	replacer := strings.NewReplacer("%0D", "\r", "%0d", "\r", "%0A", "\n", "%0a", "\n", "%22", "\"")
	return replacer.Replace(s)
}

// applyIE6Fix implements the historical Internet Explorer workaround: if a
// submitted filename looks like a full Windows path (a drive letter prefix
// "X:\" or a UNC prefix "\\"), only the trailing basename is kept.
func applyIE6Fix(filename string) string {
	if len(filename) >= 3 && filename[1] == ':' && filename[2] == '\\' {
		if ix := strings.LastIndexByte(filename, '\\'); ix >= 0 {
			return filename[ix+1:]
		}
	}
	if strings.HasPrefix(filename, `\\`) {
		if ix := strings.LastIndexByte(filename, '\\'); ix >= 0 {
			return filename[ix+1:]
		}
	}
	return filename
}
