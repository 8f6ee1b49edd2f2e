package multipart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zostay/go-multipart/header/charset"
	"github.com/zostay/go-multipart/header/param"
)

// HeaderField is one (name, value) pair as it appeared in a segment's
// headers, in the order it was parsed. Names are normalized to
// Title-Case-with-hyphens (e.g. "Content-Type").
//
// Fields are kept as an ordered slice rather than a map so that repeated
// header names, and the order headers were seen in, are preserved for
// callers that care.
type HeaderField struct {
	Name  string
	Value string
}

// Segment describes one part of a multipart/form-data stream: its headers,
// its parsed Content-Disposition/Content-Type metadata, and a running count
// of body bytes observed so far.
//
// A Segment is created when PushParser enters the HEADER state and is
// populated incrementally as header lines arrive. It becomes immutable
// (aside from Size and Complete) once CloseHeaders succeeds.
type Segment struct {
	headers []HeaderField

	Name           string  // from Content-Disposition's "name" option; may be empty
	Filename       *string // from Content-Disposition's "filename" option; nil if absent
	ContentType    string  // lowercased, options stripped; "" if absent
	Charset        string  // from Content-Type's "charset" option; "" if absent
	DeclaredLength int64   // from Content-Length; -1 if absent
	Size           int64   // body bytes observed so far
	Complete       bool    // true once the terminating boundary has been found

	sawDisposition bool
	sizeLimit      int64 // -1 means unlimited

	maxHeaderSize  int
	maxHeaderCount int
	headerCharset  string
	strict         bool
}

// newSegment constructs a Segment configured with the limits and charset
// the owning PushParser was built with.
func newSegment(cfg *config) *Segment {
	return &Segment{
		DeclaredLength: -1,
		sizeLimit:      cfg.maxSegmentSize,
		maxHeaderSize:  cfg.maxHeaderSize,
		maxHeaderCount: cfg.maxHeaderCount,
		headerCharset:  cfg.headerCharset,
		strict:         cfg.strict,
	}
}

// Headers returns every header field seen, in the order it was parsed.
// Callers must not modify the returned slice.
func (s *Segment) Headers() []HeaderField {
	return s.headers
}

// Get returns the value of the first header field with the given name
// (case-insensitive) and whether one was found.
func (s *Segment) Get(name string) (string, bool) {
	for _, h := range s.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// GetAll returns the values of every header field with the given name
// (case-insensitive), in order.
func (s *Segment) GetAll(name string) []string {
	var vs []string
	for _, h := range s.headers {
		if strings.EqualFold(h.Name, name) {
			vs = append(vs, h.Value)
		}
	}
	return vs
}

// Names returns the Title-Case name of every header field seen, in order,
// including repeats.
func (s *Segment) Names() []string {
	names := make([]string, len(s.headers))
	for i, h := range s.headers {
		names[i] = h.Name
	}
	return names
}

// titleCaseHeaderName normalizes a header name like "content-type" or
// "CONTENT-TYPE" to "Content-Type": each hyphen-delimited segment gets its
// first letter capitalized and the rest lowercased.
func titleCaseHeaderName(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}

// isHeaderNameByte reports whether b may appear in a header field name: an
// ASCII, printable, non-space character.
func isHeaderNameByte(b byte) bool {
	return b > 0x20 && b < 0x7f
}

// AddHeaderLine ingests one raw, CRLF-stripped header line. If the line is a
// folded continuation of the previous header (it begins with a space or
// tab), its stripped content is appended to the previous header's value
// with a single separating space; continuations are rejected in strict mode
// or if there is no previous header to continue.
func (s *Segment) AddHeaderLine(line []byte) error {
	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		if s.strict {
			return newError(StrictWarning, "unexpected header continuation")
		}
		if len(s.headers) == 0 {
			return newError(FormatError, "unexpected continuation with no preceding header")
		}

		cont := strings.TrimSpace(string(line))
		last := &s.headers[len(s.headers)-1]
		combined := last.Value
		if cont != "" {
			combined = combined + " " + cont
		}
		if s.maxHeaderSize > 0 && len(last.Name)+len(": ")+len(combined) > s.maxHeaderSize {
			return newError(LimitReached, "max header length exceeded")
		}
		last.Value = combined
		return nil
	}

	if s.maxHeaderSize > 0 && len(line) > s.maxHeaderSize {
		return newError(LimitReached, "max header length exceeded")
	}
	if s.maxHeaderCount > 0 && len(s.headers) >= s.maxHeaderCount {
		return newError(LimitReached, "max header count exceeded")
	}

	decoded, err := charset.Decode(s.headerCharset, line)
	if err != nil {
		return wrapError(FormatError, "header failed to decode", err)
	}

	ix := strings.IndexByte(decoded, ':')
	if ix < 0 {
		return newError(FormatError, "header line missing ':'")
	}
	name := decoded[:ix]
	if name == "" {
		return newError(FormatError, "header line has empty name")
	}
	for i := 0; i < len(name); i++ {
		if !isHeaderNameByte(name[i]) {
			return newError(FormatError, "header name contains invalid byte")
		}
	}

	value := strings.TrimSpace(decoded[ix+1:])
	s.headers = append(s.headers, HeaderField{
		Name:  titleCaseHeaderName(name),
		Value: value,
	})
	return nil
}

// CloseHeaders is called once the blank line ending a segment's headers has
// been seen. It walks the accumulated headers, parsing Content-Disposition,
// Content-Type, and Content-Length, and fails if Content-Disposition was
// never seen or names a disposition other than "form-data".
func (s *Segment) CloseHeaders() error {
	for _, h := range s.headers {
		switch h.Name {
		case "Content-Disposition":
			if err := s.parseDisposition(h.Value); err != nil {
				return err
			}
		case "Content-Type":
			s.parseContentType(h.Value)
		case "Content-Length":
			if n, err := strconv.ParseInt(strings.TrimSpace(h.Value), 10, 64); err == nil && n >= 0 {
				s.DeclaredLength = n
			}
		}
	}

	if !s.sawDisposition {
		return wrapError(FormatError, "segment headers", ErrMissingDisposition)
	}

	return nil
}

func (s *Segment) parseDisposition(value string) error {
	pv, err := param.Parse(value)
	if err != nil {
		return wrapError(FormatError, "malformed Content-Disposition", err)
	}

	if pv.Primary() != "form-data" {
		return wrapError(FormatError, fmt.Sprintf("disposition type %q", pv.Primary()), ErrWrongDispositionType)
	}

	s.sawDisposition = true

	if name, ok := pv.Parameter(param.Name); ok {
		s.Name = name
	} else if s.strict {
		return newError(StrictWarning, "missing Content-Disposition name option")
	}

	if fn, ok := pv.Parameter(param.Filename); ok {
		s.Filename = &fn
	}

	return nil
}

func (s *Segment) parseContentType(value string) {
	pv, err := param.Parse(value)
	if err != nil {
		return
	}

	s.ContentType = strings.ToLower(pv.Primary())
	s.Charset = pv.Charset()
}

// UpdateSize records n additional body bytes and enforces both the
// segment's declared Content-Length (if any) and its configured size
// limit.
func (s *Segment) UpdateSize(n int) error {
	s.Size += int64(n)

	if s.DeclaredLength >= 0 && s.Size > s.DeclaredLength {
		return wrapError(FormatError, "segment body", ErrContentLengthExceeded)
	}
	if !unlimited64(s.sizeLimit) && s.Size > s.sizeLimit {
		return newError(LimitReached, "max segment size exceeded")
	}
	return nil
}

// MarkComplete finalizes the segment once its terminating boundary has been
// found. It fails if a declared Content-Length was given and does not match
// the number of body bytes actually observed.
func (s *Segment) MarkComplete() error {
	if s.DeclaredLength >= 0 && s.Size != s.DeclaredLength {
		return wrapError(FormatError, "segment body", ErrSizeMismatch)
	}
	s.Complete = true
	return nil
}

func unlimited64(n int64) bool { return n < 0 }
