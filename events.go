package multipart

// EventKind distinguishes the three cases an Event can carry. The event
// stream is modeled as a single tagged-union type, rather than three
// separate callbacks or channels, so a consumer can drain it with one
// switch in one loop.
type EventKind int

const (
	// SegmentReady means a segment's headers have just been fully parsed.
	// Event.Segment is populated; Event.Chunk is nil.
	SegmentReady EventKind = iota

	// BodyChunk carries a non-empty slice of a segment's body bytes.
	// Event.Chunk is populated; Event.Segment is nil.
	BodyChunk

	// SegmentEnd marks the end of the current segment: its terminating
	// boundary has been found and Segment.Complete is now true. Neither
	// Event.Segment nor Event.Chunk is populated.
	SegmentEnd
)

// Event is one item in the sequence a PushParser hands back from Parse. It
// is a closed, three-case tagged union; inspect Kind first to know which
// other field, if any, is meaningful.
//
// Chunk slices are backed by the parser's internal buffer and are only
// valid until the next call to Parse. Callers that need to retain a chunk
// past that point must copy it.
type Event struct {
	Kind    EventKind
	Segment *Segment // set only when Kind == SegmentReady
	Chunk   []byte   // set only when Kind == BodyChunk
}
