package multipart

// Default limits applied when the corresponding Option is not supplied at
// construction.
const (
	// DefaultMaxHeaderSize is the default cap, in bytes, on a single raw
	// header line (including any folded continuation already merged in).
	DefaultMaxHeaderSize = 4096

	// DefaultMaxHeaderCount is the default cap on the number of header
	// fields a single segment may carry.
	DefaultMaxHeaderCount = 8

	// DefaultMaxSegmentSize is used when no WithMaxSegmentSize Option is
	// given. It is effectively unlimited.
	DefaultMaxSegmentSize = -1

	// DefaultMaxSegmentCount is used when no WithMaxSegmentCount Option is
	// given. It is effectively unlimited.
	DefaultMaxSegmentCount = -1

	// preambleScanThreshold bounds how much of the buffer PREAMBLE will
	// accumulate before giving up (in strict mode) on ever finding the
	// first boundary. It is deliberately generous: legitimate preambles are
	// rare and short, but we don't want to fail a slow trickle of chunks
	// that simply hasn't delivered the boundary yet.
	preambleScanThreshold = 1 << 20
)

// unlimited reports whether a configured limit value means "no limit".
func unlimited(n int) bool { return n < 0 }
