package form

import (
	"bytes"
	"io"
	"os"

	mp "github.com/zostay/go-multipart"
)

// DefaultMaxMemory is the per-part in-memory spool threshold used when a
// Reader is not given an explicit WithMaxMemory option: bodies up to this
// size are kept in a bytes.Buffer, larger bodies are copied to a temporary
// file.
const DefaultMaxMemory = 1 << 20 // 1 MiB

// Part is one multipart/form-data segment with its body fully read and
// buffered: in memory while small, spooled to a temporary file once it
// grows past the Reader's configured memory threshold. It embeds
// *multipart.Segment, so Name, Filename, ContentType, Charset,
// DeclaredLength, Size, Complete, and Headers are all available directly.
type Part struct {
	*mp.Segment

	maxMemory int64
	mem       *bytes.Buffer
	memR      *bytes.Reader
	disk      *os.File
	spooled   bool
	closed    bool
}

func newPart(seg *mp.Segment, maxMemory int64) *Part {
	return &Part{
		Segment:   seg,
		maxMemory: maxMemory,
		mem:       &bytes.Buffer{},
	}
}

// write appends b to the part's body, spooling to a temporary file the
// first time the in-memory buffer would exceed maxMemory.
func (p *Part) write(b []byte) error {
	if p.spooled {
		_, err := p.disk.Write(b)
		return err
	}

	p.mem.Write(b)
	if p.maxMemory >= 0 && int64(p.mem.Len()) > p.maxMemory {
		f, err := os.CreateTemp("", "go-multipart-part-*")
		if err != nil {
			return err
		}
		if _, err := f.Write(p.mem.Bytes()); err != nil {
			f.Close()
			os.Remove(f.Name())
			return err
		}
		p.disk = f
		p.spooled = true
		p.mem = nil
	}
	return nil
}

// finalize prepares the part for reading, once its SegmentEnd event has
// been observed: it rewinds a spooled file, or wraps the in-memory buffer
// in a bytes.Reader so repeated or partial Reads behave like any other
// io.Reader.
func (p *Part) finalize() error {
	if p.spooled {
		_, err := p.disk.Seek(0, io.SeekStart)
		return err
	}
	p.memR = bytes.NewReader(p.mem.Bytes())
	return nil
}

// IsBuffered reports whether the part's body is held entirely in memory
// rather than spooled to a temporary file.
func (p *Part) IsBuffered() bool { return !p.spooled }

// Read implements io.Reader over the part's body. Read is only valid
// after the part has been returned by Reader.NextPart.
func (p *Part) Read(b []byte) (int, error) {
	if p.spooled {
		return p.disk.Read(b)
	}
	return p.memR.Read(b)
}

// Close releases the part's temporary file, if it was spooled to disk. It
// is a cheap no-op for memory-buffered parts, but callers should call it
// unconditionally once done with a Part.
func (p *Part) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.spooled {
		name := p.disk.Name()
		cerr := p.disk.Close()
		if rerr := os.Remove(name); cerr == nil {
			cerr = rerr
		}
		return cerr
	}
	return nil
}

// Value reads the part's entire body into a string. It is meant for
// small, memory-buffered text fields; for file uploads prefer Read,
// io.Copy, or SaveAs so a large spooled body isn't loaded into memory
// twice.
func (p *Part) Value() (string, error) {
	b, err := io.ReadAll(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SaveAs copies the part's body to a new file at path, creating or
// truncating it as needed, and returns the number of bytes written.
func (p *Part) SaveAs(path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, p)
}
