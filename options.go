package multipart

// config holds the resolved settings for a PushParser. It is built by
// cloning defaultConfig and applying whatever Options are passed to New.
type config struct {
	contentLength   int64
	maxHeaderSize   int
	maxHeaderCount  int
	maxSegmentSize  int64
	maxSegmentCount int
	headerCharset   string
	strict          bool
}

func (c *config) clone() *config {
	cc := *c
	return &cc
}

var defaultConfig = &config{
	contentLength:   -1,
	maxHeaderSize:   DefaultMaxHeaderSize,
	maxHeaderCount:  DefaultMaxHeaderCount,
	maxSegmentSize:  DefaultMaxSegmentSize,
	maxSegmentCount: DefaultMaxSegmentCount,
	headerCharset:   "utf-8",
	strict:          false,
}

// Option configures a PushParser at construction time. Options are applied
// in the order given to New.
type Option func(*config)

// WithContentLength tells the parser the total expected size of the
// multipart body, in bytes. If the sum of already-parsed, buffered, and
// newly pushed bytes would ever exceed n, Parse fails with
// ErrContentLengthExceeded. Pass a negative value (the default) to disable
// this check.
func WithContentLength(n int64) Option {
	return func(c *config) { c.contentLength = n }
}

// WithMaxHeaderSize caps the length, in bytes, of any single header line
// within a segment (after folded continuations have been merged in). The
// default is DefaultMaxHeaderSize.
func WithMaxHeaderSize(n int) Option {
	return func(c *config) { c.maxHeaderSize = n }
}

// WithMaxHeaderCount caps the number of header fields a single segment may
// carry. The default is DefaultMaxHeaderCount.
func WithMaxHeaderCount(n int) Option {
	return func(c *config) { c.maxHeaderCount = n }
}

// WithMaxSegmentSize caps the number of body bytes a single segment may
// carry. Pass a negative value to disable the cap (the default).
func WithMaxSegmentSize(n int64) Option {
	return func(c *config) { c.maxSegmentSize = n }
}

// WithMaxSegmentCount caps the total number of segments the parser will
// accept across the whole stream. Pass a negative value to disable the cap
// (the default).
func WithMaxSegmentCount(n int) Option {
	return func(c *config) { c.maxSegmentCount = n }
}

// WithHeaderCharset sets the charset used to decode header bytes before
// they are split into name/value pairs and before header option values are
// parsed. The default is "utf-8". Any charset known to
// golang.org/x/text/encoding/ianaindex is accepted; see the header/charset
// package.
func WithHeaderCharset(charset string) Option {
	return func(c *config) { c.headerCharset = charset }
}

// Strict turns a handful of StrictWarning-class conditions that are
// otherwise tolerated into hard errors: preamble garbage before the first
// boundary, folded header continuations, a missing Content-Disposition
// "name" option, data received after the stream has already completed, and
// failing to find the first boundary within the initial scan threshold.
func Strict() Option {
	return func(c *config) { c.strict = true }
}
