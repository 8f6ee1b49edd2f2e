package form

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/zostay/go-multipart/header/charset"
	"github.com/zostay/go-multipart/header/param"
	"github.com/zostay/go-multipart/urlencoded"
)

// FileHeader describes one uploaded file from a parsed multipart/form-data
// request: its declared metadata plus a reference to the buffered Part
// backing it.
type FileHeader struct {
	Filename    string
	ContentType string
	Charset     string
	Size        int64

	part *Part
}

// Open returns the file's body as an io.ReadCloser. The returned reader
// shares state with the Part ParseRequest built it from, so it may only
// be opened and drained once.
func (fh *FileHeader) Open() (io.ReadCloser, error) {
	return fh.part, nil
}

// ParseRequest reads req's body according to its Content-Type header and
// routes the result into two multi-value maps: forms holds decoded text
// field values, files holds uploaded-file metadata. Both
// multipart/form-data and application/x-www-form-urlencoded bodies are
// accepted.
func ParseRequest(req *http.Request, opts ...Option) (forms url.Values, files map[string][]*FileHeader, err error) {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, nil, fmt.Errorf("form: unsupported request method %q", req.Method)
	}

	ct := req.Header.Get("Content-Type")
	if ct == "" {
		return nil, nil, fmt.Errorf("form: missing Content-Type header")
	}

	pv, err := param.Parse(ct)
	if err != nil {
		return nil, nil, fmt.Errorf("form: malformed Content-Type: %w", err)
	}

	forms = url.Values{}
	files = map[string][]*FileHeader{}

	switch pv.Primary() {
	case "multipart/form-data":
		boundary := pv.Boundary()
		if boundary == "" {
			return nil, nil, fmt.Errorf("form: no boundary in multipart/form-data Content-Type")
		}
		if err := collectParts(req, boundary, forms, files, opts); err != nil {
			return nil, nil, err
		}
		return forms, files, nil

	case "application/x-www-form-urlencoded":
		v, err := urlencoded.Parse(req.Body, req.ContentLength)
		if err != nil {
			return nil, nil, err
		}
		return v, files, nil

	default:
		return nil, nil, fmt.Errorf("form: unsupported content type %q", pv.Primary())
	}
}

func collectParts(req *http.Request, boundary string, forms url.Values, files map[string][]*FileHeader, opts []Option) error {
	r := NewReader(req.Body, boundary, opts...)
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if part.Filename != nil {
			files[part.Name] = append(files[part.Name], &FileHeader{
				Filename:    *part.Filename,
				ContentType: part.ContentType,
				Charset:     part.Charset,
				Size:        part.Size,
				part:        part,
			})
			continue
		}

		raw, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return err
		}

		cs := part.Charset
		if cs == "" {
			cs = "utf-8"
		}
		decoded, err := charset.Decode(cs, raw)
		if err != nil {
			return err
		}
		forms[part.Name] = append(forms[part.Name], decoded)
	}
}
