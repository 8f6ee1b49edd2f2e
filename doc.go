// Package multipart implements a push-based, incremental parser for the
// multipart/form-data wire format defined by RFC 7578, built on the MIME
// grammar borrowed from RFC 2046.
//
// Unlike the pull-style parsers in the standard library, a PushParser does
// not own a reader. The caller feeds it byte chunks of arbitrary size, in
// any partition, via Parse, and drains the resulting Event sequence before
// feeding the next chunk. This makes the parser suitable for use directly
// against a non-blocking source -- an HTTP handler reading from a body a
// piece at a time, a WebSocket frame reassembler, or a fuzzer driving the
// state machine byte by byte -- without the parser itself performing any
// I/O or retaining unbounded memory between calls.
//
// A parser walks forward through four states: PREAMBLE, HEADER, BODY, and
// COMPLETE. Events are emitted in strict temporal order: a SegmentReady
// event once a part's headers are fully read, zero or more BodyChunk events
// carrying slices of that part's body, and a SegmentEnd event once the
// terminating boundary is found. This repeats for each part in the stream.
//
// Higher-level helpers that buffer a part's body into memory or a spool
// file, and that route multipart/form-data and
// application/x-www-form-urlencoded bodies into value maps, live in the
// form and urlencoded subpackages; they are built entirely on top of the
// event protocol described above.
package multipart
