package form

import (
	"io"

	mp "github.com/zostay/go-multipart"
)

const defaultChunkSize = 32 * 1024

// readerConfig holds the resolved settings for a Reader, following the
// same clone-and-apply Option idiom the core package uses for its own
// config struct.
type readerConfig struct {
	chunkSize  int
	maxMemory  int64
	parserOpts []mp.Option
}

// Option configures a Reader at construction time.
type Option func(*readerConfig)

// WithChunkSize sets how many bytes Reader reads from its source at a
// time while pulling parts. The default is 32 KiB.
func WithChunkSize(n int) Option {
	return func(c *readerConfig) { c.chunkSize = n }
}

// WithMaxMemory sets the per-part in-memory spool threshold; a part's body
// larger than this is copied to a temporary file as it is read. Pass a
// negative value to never spool to disk. The default is DefaultMaxMemory.
func WithMaxMemory(n int64) Option {
	return func(c *readerConfig) { c.maxMemory = n }
}

// WithParserOptions passes additional multipart.Option values through to
// the PushParser a Reader constructs internally -- size limits, strict
// mode, header charset, and so on.
func WithParserOptions(opts ...mp.Option) Option {
	return func(c *readerConfig) { c.parserOpts = append(c.parserOpts, opts...) }
}

// Reader pulls one *Part at a time out of a multipart/form-data byte
// stream. It owns src and the PushParser it wraps, reading fixed-size
// chunks and draining the resulting events until a full part -- headers
// and body -- is available.
//
// A Reader is single-use and single-threaded, matching the PushParser it
// wraps.
type Reader struct {
	src       io.Reader
	pp        *mp.PushParser
	chunkSize int
	maxMemory int64

	pending []mp.Event
	readBuf []byte
	eof     bool
}

// NewReader constructs a Reader that pulls multipart/form-data parts from
// src, which must be framed with the given boundary token (as extracted,
// unquoted, from a Content-Type header's boundary= option).
func NewReader(src io.Reader, boundary string, opts ...Option) *Reader {
	cfg := &readerConfig{chunkSize: defaultChunkSize, maxMemory: DefaultMaxMemory}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.chunkSize <= 0 {
		cfg.chunkSize = defaultChunkSize
	}

	return &Reader{
		src:       src,
		pp:        mp.New(boundary, cfg.parserOpts...),
		chunkSize: cfg.chunkSize,
		maxMemory: cfg.maxMemory,
		readBuf:   make([]byte, cfg.chunkSize),
	}
}

// NextPart reads and returns the next part in the stream, fully buffering
// its body before returning. It returns io.EOF once every part has been
// returned and the stream has reached COMPLETE.
//
// The previous Part returned, if any, should be Closed before calling
// NextPart again; Reader does not do this automatically since a caller may
// still want to Read from it.
func (r *Reader) NextPart() (*Part, error) {
	var part *Part

	for {
		for len(r.pending) == 0 {
			if r.eof {
				return nil, io.EOF
			}
			if err := r.fill(); err != nil {
				return nil, err
			}
		}

		ev := r.pending[0]
		r.pending = r.pending[1:]

		switch ev.Kind {
		case mp.SegmentReady:
			part = newPart(ev.Segment, r.maxMemory)
		case mp.BodyChunk:
			if part != nil {
				if err := part.write(ev.Chunk); err != nil {
					return nil, err
				}
			}
		case mp.SegmentEnd:
			if part != nil {
				if err := part.finalize(); err != nil {
					return nil, err
				}
				return part, nil
			}
		}
	}
}

// fill reads one more chunk from src and feeds it to the push parser,
// appending whatever events come back to pending. io.EOF from src is
// forwarded to the push parser as the empty chunk that signals end of
// input.
func (r *Reader) fill() error {
	if r.eof {
		return io.EOF
	}

	n, err := r.src.Read(r.readBuf)
	if n > 0 {
		chunk := make([]byte, n)
		copy(chunk, r.readBuf[:n])
		events, perr := r.pp.Parse(chunk)
		r.pending = append(r.pending, events...)
		if perr != nil {
			return perr
		}
	}

	if err == io.EOF {
		r.eof = true
		events, perr := r.pp.Parse(nil)
		r.pending = append(r.pending, events...)
		return perr
	}
	if err != nil {
		return err
	}
	return nil
}
