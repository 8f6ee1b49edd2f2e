package multipart

import "bytes"

// state is one of the four states a PushParser walks through, in the order
// PREAMBLE -> HEADER -> BODY -> (HEADER -> BODY)* -> COMPLETE.
type state int

const (
	statePreamble state = iota
	stateHeader
	stateBody
	stateComplete
)

// PushParser is an incremental, non-blocking state machine over
// multipart/form-data input. It owns no reader and performs no I/O: the
// caller feeds it byte chunks of any size, in any partition, through Parse,
// and drains the returned Event slice before calling Parse again.
//
// A PushParser is single-threaded and not safe for concurrent use by
// multiple goroutines.
type PushParser struct {
	cfg *config

	boundary           []byte
	delimiter          []byte // CRLF "--" boundary
	firstBoundaryToken []byte // "--" boundary, used only in PREAMBLE

	buf []byte

	parsed       int64 // cumulative bytes consumed across all Parse calls
	segmentCount int
	state        state
	current      *Segment

	closed bool
	err    error
}

// New constructs a PushParser for the given boundary token (as it appeared,
// unquoted, in a Content-Type header's boundary= option). Construction
// performs no I/O.
func New(boundary string, opts ...Option) *PushParser {
	cfg := defaultConfig.clone()
	for _, opt := range opts {
		opt(cfg)
	}

	b := []byte(boundary)

	delim := make([]byte, 0, len(b)+4)
	delim = append(delim, '\r', '\n', '-', '-')
	delim = append(delim, b...)

	first := make([]byte, 0, len(b)+2)
	first = append(first, '-', '-')
	first = append(first, b...)

	return &PushParser{
		cfg:                cfg,
		boundary:           b,
		delimiter:          delim,
		firstBoundaryToken: first,
		state:              statePreamble,
	}
}

// State reports the parser's current state, mostly useful for tests and
// diagnostics.
func (p *PushParser) State() string {
	switch p.state {
	case statePreamble:
		return "PREAMBLE"
	case stateHeader:
		return "HEADER"
	case stateBody:
		return "BODY"
	case stateComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Err returns the first error the parser encountered, or nil.
func (p *PushParser) Err() error { return p.err }

// Closed reports whether the parser has closed, either because Close was
// called or because an error occurred.
func (p *PushParser) Closed() bool { return p.closed }

// Parse consumes chunk, appending it to the parser's internal buffer, and
// returns the sequence of Events produced. Passing an empty chunk signals
// end of input: if the parser has not reached COMPLETE by then, Parse fails
// with a FormatError.
//
// The caller must fully consume the returned Event slice before calling
// Parse again: BodyChunk events carry slices of the parser's internal
// buffer that remain valid only until the next call.
func (p *PushParser) Parse(chunk []byte) ([]Event, error) {
	if p.closed {
		err := wrapError(ClosedError, "parse called on a closed parser", ErrClosed)
		return nil, err
	}

	if p.cfg.contentLength >= 0 {
		total := p.parsed + int64(len(p.buf)) + int64(len(chunk))
		if total > p.cfg.contentLength {
			err := wrapError(FormatError, "declared content length", ErrContentLengthExceeded)
			p.fail(err)
			return nil, err
		}
	}

	if p.state == stateComplete && len(chunk) > 0 {
		if p.cfg.strict {
			err := newError(StrictWarning, "data received after end of multipart stream")
			p.fail(err)
			return nil, err
		}
		return nil, nil
	}

	p.buf = append(p.buf, chunk...)

	var events []Event
	pos := 0

	for {
		var (
			advance int
			cont    bool
			err     error
		)

		switch p.state {
		case statePreamble:
			advance, cont, err = p.stepPreamble(p.buf[pos:], &events)
		case stateHeader:
			advance, cont, err = p.stepHeader(p.buf[pos:], &events)
		case stateBody:
			advance, cont, err = p.stepBody(p.buf[pos:], &events)
		case stateComplete:
			advance = len(p.buf) - pos
			cont = false
		}

		pos += advance

		if err != nil {
			p.parsed += int64(pos)
			p.buf = p.buf[pos:]
			p.fail(err)
			return events, err
		}

		if !cont {
			break
		}
	}

	p.parsed += int64(pos)
	p.buf = p.buf[pos:]

	if len(chunk) == 0 && p.state != stateComplete {
		err := wrapError(FormatError, "end of input", ErrIncomplete)
		p.fail(err)
		return events, err
	}

	return events, nil
}

// Close releases the parser's internal buffer and marks it closed. If
// checkComplete is true and the parser never reached COMPLETE, Close fails
// with a ClosedError wrapping ErrIncomplete. Close is idempotent: calling it
// on an already-closed parser is a no-op that returns nil.
func (p *PushParser) Close(checkComplete bool) error {
	if p.closed {
		return nil
	}

	wasComplete := p.state == stateComplete
	p.closed = true
	p.buf = nil
	p.current = nil

	if checkComplete && !wasComplete {
		err := wrapError(ClosedError, "close", ErrIncomplete)
		if p.err == nil {
			p.err = err
		}
		return err
	}
	return nil
}

// fail latches err as the parser's terminal error (first error wins) and
// closes the parser without running the completeness check Close(true)
// would otherwise perform.
func (p *PushParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
	p.closed = true
	p.buf = nil
	p.current = nil
}

// beginSegment starts a new Segment, enforcing max_segment_count, and
// transitions the parser into the HEADER state.
func (p *PushParser) beginSegment() error {
	p.segmentCount++
	if !unlimited(p.cfg.maxSegmentCount) && p.segmentCount > p.cfg.maxSegmentCount {
		return newError(LimitReached, "max segment count exceeded")
	}
	p.current = newSegment(p.cfg)
	p.state = stateHeader
	return nil
}

// flushBody enforces the current segment's size limits on n additional
// body bytes and, if non-empty, appends a BodyChunk event carrying them.
// The slice b aliases the parser's internal buffer and is only valid until
// the next Parse call.
func (p *PushParser) flushBody(b []byte, events *[]Event) error {
	if len(b) == 0 {
		return nil
	}
	if err := p.current.UpdateSize(len(b)); err != nil {
		return err
	}
	*events = append(*events, Event{Kind: BodyChunk, Chunk: b})
	return nil
}

// stepPreamble scans for the first boundary. Because no CRLF precedes the
// very first boundary on the wire, it searches for the "--boundary" suffix
// of the full delimiter; the two bytes immediately after decide whether a
// segment begins (CRLF) or the stream is an empty multipart body ("--").
func (p *PushParser) stepPreamble(data []byte, events *[]Event) (advance int, cont bool, err error) {
	idx := bytes.Index(data, p.firstBoundaryToken)
	if idx < 0 {
		if len(data) > preambleScanThreshold && p.cfg.strict {
			return 0, false, newError(StrictWarning, "boundary not found in first chunk")
		}
		keep := len(p.delimiter) + 2
		if len(data) > keep {
			return len(data) - keep, false, nil
		}
		return 0, false, nil
	}

	precededByCRLF := idx >= 2 && data[idx-2] == '\r' && data[idx-1] == '\n'
	if idx != 0 && !precededByCRLF && p.cfg.strict {
		return 0, false, newError(StrictWarning, "preamble data before first boundary")
	}

	tailStart := idx + len(p.firstBoundaryToken)
	if tailStart+2 > len(data) {
		return 0, false, nil
	}

	tail := data[tailStart : tailStart+2]
	switch {
	case tail[0] == '\r' && tail[1] == '\n':
		if err := p.beginSegment(); err != nil {
			return 0, false, err
		}
		return tailStart + 2, true, nil
	case tail[0] == '-' && tail[1] == '-':
		p.state = stateComplete
		return tailStart + 2, true, nil
	case tail[0] == '\n':
		return 0, false, newError(FormatError, "invalid line break after first boundary")
	default:
		return 0, false, newError(FormatError, "unexpected byte after first boundary")
	}
}

// stepHeader finds the next header line (or the blank line ending the
// header block) from the front of data.
func (p *PushParser) stepHeader(data []byte, events *[]Event) (advance int, cont bool, err error) {
	crlf := bytes.Index(data, []byte{'\r', '\n'})
	if crlf >= 0 {
		if crlf == 0 {
			if err := p.current.CloseHeaders(); err != nil {
				return 0, false, err
			}
			*events = append(*events, Event{Kind: SegmentReady, Segment: p.current})
			p.state = stateBody
			return 2, true, nil
		}

		if err := p.current.AddHeaderLine(data[:crlf]); err != nil {
			return 0, false, err
		}
		return crlf + 2, true, nil
	}

	if lf := bytes.IndexByte(data, '\n'); lf >= 0 {
		if lf == 0 || data[lf-1] != '\r' {
			return 0, false, newError(FormatError, "invalid line break in header")
		}
	}

	if p.cfg.maxHeaderSize > 0 && len(data) > p.cfg.maxHeaderSize {
		return 0, false, newError(LimitReached, "max header length exceeded")
	}

	return 0, false, nil
}

// stepBody scans for the next delimiter (CRLF "--" boundary) in the current
// segment's body.
func (p *PushParser) stepBody(data []byte, events *[]Event) (advance int, cont bool, err error) {
	need := len(p.delimiter) + 2
	if len(data) < need {
		return 0, false, nil
	}

	for search := 0; ; {
		rel := bytes.Index(data[search:], p.delimiter)
		if rel < 0 {
			break
		}
		idx := search + rel

		tailStart := idx + len(p.delimiter)
		if tailStart+2 > len(data) {
			if idx > 0 {
				if err := p.flushBody(data[:idx], events); err != nil {
					return 0, false, err
				}
			}
			return idx, false, nil
		}

		tail := data[tailStart : tailStart+2]
		if tail[0] == '\r' && tail[1] == '\n' {
			if err := p.flushBody(data[:idx], events); err != nil {
				return 0, false, err
			}
			if err := p.current.MarkComplete(); err != nil {
				return 0, false, err
			}
			*events = append(*events, Event{Kind: SegmentEnd})
			if err := p.beginSegment(); err != nil {
				return 0, false, err
			}
			return tailStart + 2, true, nil
		}
		if tail[0] == '-' && tail[1] == '-' {
			if err := p.flushBody(data[:idx], events); err != nil {
				return 0, false, err
			}
			if err := p.current.MarkComplete(); err != nil {
				return 0, false, err
			}
			*events = append(*events, Event{Kind: SegmentEnd})
			p.current = nil
			p.state = stateComplete
			return tailStart + 2, true, nil
		}

		// False match: this CRLF--boundary occurrence is just body content.
		// A real delimiter may still follow it in the same buffer, so keep
		// scanning past it rather than falling through.
		search = idx + 1
	}

	cutoff := len(data) - (len(p.delimiter) + 1)
	if cutoff > 0 {
		if err := p.flushBody(data[:cutoff], events); err != nil {
			return 0, false, err
		}
		return cutoff, false, nil
	}
	return 0, false, nil
}
