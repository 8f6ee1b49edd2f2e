package multipart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collected is a convenience flattening of an Event sequence into the three
// pieces a test usually wants to assert on: the segments seen (in order, by
// value snapshot at SegmentReady time), the concatenated body bytes per
// segment, and the number of SegmentEnd markers.
type collected struct {
	names  []string
	bodies [][]byte
	ends   int
}

func collect(t *testing.T, p *PushParser, chunks ...[]byte) *collected {
	t.Helper()
	c := &collected{}
	var cur []byte
	started := false

	push := func(chunk []byte) {
		events, err := p.Parse(chunk)
		require.NoError(t, err)
		for _, ev := range events {
			switch ev.Kind {
			case SegmentReady:
				if started {
					c.bodies = append(c.bodies, cur)
				}
				cur = nil
				started = true
				c.names = append(c.names, ev.Segment.Name)
			case BodyChunk:
				require.NotEmpty(t, ev.Chunk)
				cur = append(cur, ev.Chunk...)
			case SegmentEnd:
				c.bodies = append(c.bodies, cur)
				cur = nil
				started = false
				c.ends++
			}
		}
	}

	for _, chunk := range chunks {
		push(chunk)
	}
	push(nil)
	return c
}

func TestPushParser_simpleTextField(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))

	require.Equal(t, []string{"a"}, c.names)
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "hello", string(c.bodies[0]))
	assert.Equal(t, 1, c.ends)
	assert.Equal(t, "COMPLETE", p.State())
}

func TestPushParser_fileUpload(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"x.png\"\r\n" +
		"Content-Type: image/png\r\n" +
		"\r\n" +
		"\x89PNG\r\n" +
		"--foo--"

	p := New("foo")
	var segment *Segment
	events, err := p.Parse([]byte(input))
	require.NoError(t, err)

	var body []byte
	for _, ev := range events {
		switch ev.Kind {
		case SegmentReady:
			segment = ev.Segment
		case BodyChunk:
			body = append(body, ev.Chunk...)
		}
	}
	_, err = p.Parse(nil)
	require.NoError(t, err)

	require.NotNil(t, segment)
	assert.Equal(t, "f", segment.Name)
	require.NotNil(t, segment.Filename)
	assert.Equal(t, "x.png", *segment.Filename)
	assert.Equal(t, "image/png", segment.ContentType)
	assert.Equal(t, "\x89PNG", string(body))
}

func TestPushParser_twoFieldsChunkedByteByByte(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"1\r\n" +
		"--foo\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n" +
		"\r\n" +
		"2\r\n" +
		"--foo--"

	p := New("foo")
	chunks := make([][]byte, len(input))
	for i := 0; i < len(input); i++ {
		chunks[i] = []byte{input[i]}
	}
	c := collect(t, p, chunks...)

	require.Equal(t, []string{"a", "b"}, c.names)
	require.Len(t, c.bodies, 2)
	assert.Equal(t, "1", string(c.bodies[0]))
	assert.Equal(t, "2", string(c.bodies[1]))
}

func TestPushParser_boundaryLikeBodyContent(t *testing.T) {
	t.Parallel()

	// "--foo" appears inside the body but is not followed by CRLF or "--",
	// so it must come back verbatim as body content.
	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"x--fooBAR\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "x--fooBAR", string(c.bodies[0]))
}

func TestPushParser_falseMatchThenRealTerminator(t *testing.T) {
	t.Parallel()

	// The body contains a full CRLF--boundary sequence whose tail bytes
	// disqualify it, with the real terminator close behind in the same
	// chunk. The false match must come back as body content and the real
	// terminator must still be recognized.
	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"A\r\n--fooXY\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "A\r\n--fooXY", string(c.bodies[0]))
	assert.Equal(t, 1, c.ends)
	assert.Equal(t, "COMPLETE", p.State())
}

func TestPushParser_unexpectedEOF(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"hello"

	p := New("foo")
	_, err := p.Parse([]byte(input))
	require.NoError(t, err)

	_, err = p.Parse(nil)
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, FormatError, pe.Kind)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestPushParser_limitBreach_maxSegmentSize(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"12345\r\n" +
		"--foo--"

	p := New("foo", WithMaxSegmentSize(4))
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, LimitReached, pe.Kind)
}

func TestPushParser_emptyStream(t *testing.T) {
	t.Parallel()

	p := New("foo")
	events, err := p.Parse([]byte("--foo--"))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, "COMPLETE", p.State())

	_, err = p.Parse(nil)
	require.NoError(t, err)
}

func TestPushParser_preambleBeforeFirstBoundary(t *testing.T) {
	t.Parallel()

	input := "ignored preamble text\r\n" +
		"--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))
	assert.Equal(t, []string{"a"}, c.names)
}

func TestPushParser_preambleGarbageStrictFails(t *testing.T) {
	t.Parallel()

	input := "garbage--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo", Strict())
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, StrictWarning, pe.Kind)
}

func TestPushParser_boundarySplitAcrossChunkEdges(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"hello\r\n--foo--"

	// Try every possible split point; the concatenated events must always
	// report the same body. split starts at 1 because an empty first chunk
	// would signal end of input.
	for split := 1; split <= len(input); split++ {
		split := split
		t.Run("", func(t *testing.T) {
			t.Parallel()
			p := New("foo")
			c := collect(t, p, []byte(input[:split]), []byte(input[split:]))
			require.Equal(t, []string{"a"}, c.names)
			require.Len(t, c.bodies, 1)
			assert.Equal(t, "hello", string(c.bodies[0]))
		})
	}
}

func TestPushParser_contentLengthMatch(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))
	require.Len(t, c.bodies, 1)
	assert.Equal(t, "hello", string(c.bodies[0]))
}

func TestPushParser_contentLengthMismatchTooLong(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"Content-Length: 4\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--foo--"

	p := New("foo")
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, FormatError, pe.Kind)
}

func TestPushParser_contentLengthMismatchTooShort(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"Content-Length: 6\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--foo--"

	p := New("foo")
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, FormatError, pe.Kind)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestPushParser_missingContentDisposition(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo")
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDisposition)
}

func TestPushParser_missingNameOptionNonStrict(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))
	require.Equal(t, []string{""}, c.names)
}

func TestPushParser_missingNameOptionStrict(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo", Strict())
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, StrictWarning, pe.Kind)
}

func TestPushParser_repeatedNameAcrossSegments(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"dup\"\r\n" +
		"\r\n" +
		"1\r\n" +
		"--foo\r\n" +
		"Content-Disposition: form-data; name=\"dup\"\r\n" +
		"\r\n" +
		"2\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))
	assert.Equal(t, []string{"dup", "dup"}, c.names)
	require.Len(t, c.bodies, 2)
	assert.Equal(t, "1", string(c.bodies[0]))
	assert.Equal(t, "2", string(c.bodies[1]))
}

func TestPushParser_headerExactlyAtLimit(t *testing.T) {
	t.Parallel()

	// Build a header line whose raw byte length is exactly maxHeaderSize.
	base := []byte("Content-Disposition: form-data; name=\"")
	pad := 64 - len(base) - len(`"`)
	require.Greater(t, pad, 0)
	value := make([]byte, pad)
	for i := range value {
		value[i] = 'x'
	}
	headerLine := string(base) + string(value) + `"`
	require.Len(t, headerLine, 64)

	input := "--foo\r\n" + headerLine + "\r\n\r\nv\r\n--foo--"

	p := New("foo", WithMaxHeaderSize(64))
	_, err := p.Parse([]byte(input))
	require.NoError(t, err)
}

func TestPushParser_headerOneByteOverLimit(t *testing.T) {
	t.Parallel()

	base := []byte("Content-Disposition: form-data; name=\"")
	pad := 65 - len(base) - len(`"`)
	value := make([]byte, pad)
	for i := range value {
		value[i] = 'x'
	}
	headerLine := string(base) + string(value) + `"`
	require.Len(t, headerLine, 65)

	input := "--foo\r\n" + headerLine + "\r\n\r\nv\r\n--foo--"

	p := New("foo", WithMaxHeaderSize(64))
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, LimitReached, pe.Kind)
}

func TestPushParser_headerFoldedContinuationAcceptedNonStrict(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data;\r\n" +
		" name=\"a\"\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo")
	c := collect(t, p, []byte(input))
	assert.Equal(t, []string{"a"}, c.names)
}

func TestPushParser_headerFoldedContinuationRejectedStrict(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data;\r\n" +
		" name=\"a\"\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--"

	p := New("foo", Strict())
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, StrictWarning, pe.Kind)
}

func TestPushParser_dataAfterTerminatorTolerantNonStrict(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"v\r\n" +
		"--foo--epilogue that should be ignored"

	p := New("foo")
	events, err := p.Parse([]byte(input))
	require.NoError(t, err)
	_ = events
	_, err = p.Parse(nil)
	require.NoError(t, err)
}

func TestPushParser_dataAfterTerminatorStrictRaises(t *testing.T) {
	t.Parallel()

	p := New("foo", Strict())
	_, err := p.Parse([]byte("--foo--"))
	require.NoError(t, err)

	_, err = p.Parse([]byte("more data"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, StrictWarning, pe.Kind)
}

func TestPushParser_closedRejectsFurtherInput(t *testing.T) {
	t.Parallel()

	p := New("foo")
	_, err := p.Parse([]byte("--foo--"))
	require.NoError(t, err)
	require.NoError(t, p.Close(true))

	_, err = p.Parse([]byte("x"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ClosedError, pe.Kind)
}

func TestPushParser_closeChecksCompleteness(t *testing.T) {
	t.Parallel()

	p := New("foo")
	_, err := p.Parse([]byte("--foo\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nv"))
	require.NoError(t, err)

	err = p.Close(true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestPushParser_closeWithoutCheckIsLenient(t *testing.T) {
	t.Parallel()

	p := New("foo")
	_, err := p.Parse([]byte("--foo\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nv"))
	require.NoError(t, err)

	require.NoError(t, p.Close(false))
}

func TestPushParser_contentLengthOptionExceeded(t *testing.T) {
	t.Parallel()

	p := New("foo", WithContentLength(4))
	_, err := p.Parse([]byte("--foo\r\n"))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, FormatError, pe.Kind)
	assert.ErrorIs(t, err, ErrContentLengthExceeded)
}

func TestPushParser_maxSegmentCount(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n1\r\n" +
		"--foo\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n2\r\n" +
		"--foo--"

	p := New("foo", WithMaxSegmentCount(1))
	_, err := p.Parse([]byte(input))
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, LimitReached, pe.Kind)
}

func TestPushParser_chunkIndependence(t *testing.T) {
	t.Parallel()

	input := "--foo\r\n" +
		"Content-Disposition: form-data; name=\"a\"; filename=\"f.txt\"\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"the quick brown fox jumps over the lazy dog\r\n" +
		"--foo\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n" +
		"\r\n" +
		"second field value\r\n" +
		"--foo--trailing epilogue"

	oneShot := collect(t, New("foo"), []byte(input))

	for chunkSize := 1; chunkSize <= 7; chunkSize++ {
		var chunks [][]byte
		for i := 0; i < len(input); i += chunkSize {
			end := i + chunkSize
			if end > len(input) {
				end = len(input)
			}
			chunks = append(chunks, []byte(input[i:end]))
		}
		c := collect(t, New("foo"), chunks...)
		assert.Equal(t, oneShot.names, c.names, "chunkSize=%d", chunkSize)
		require.Equal(t, len(oneShot.bodies), len(c.bodies), "chunkSize=%d", chunkSize)
		for i := range oneShot.bodies {
			assert.Equal(t, string(oneShot.bodies[i]), string(c.bodies[i]), "chunkSize=%d part=%d", chunkSize, i)
		}
		assert.Equal(t, oneShot.ends, c.ends, "chunkSize=%d", chunkSize)
	}
}

func TestPushParser_boundedBufferBetweenCalls(t *testing.T) {
	t.Parallel()

	p := New("foo")
	body := make([]byte, 10000)
	for i := range body {
		body[i] = 'a'
	}
	first := "--foo\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\n"
	_, err := p.Parse([]byte(first))
	require.NoError(t, err)

	_, err = p.Parse(body)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(p.buf), len(p.delimiter)+2)
}
