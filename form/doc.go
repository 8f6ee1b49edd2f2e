// Package form implements pull-style consumption of multipart/form-data
// on top of multipart.PushParser: a Reader that drains the push parser's
// event sequence into one *Part at a time, and a ParseRequest convenience
// function that routes an *http.Request's body into two multi-value maps,
// one for text fields and one for file uploads.
//
// Unlike multipart.PushParser, Reader owns an io.Reader and performs I/O:
// it reads fixed-size chunks from its source, feeds them to the push
// parser, and buffers each part's body either entirely in memory or,
// once a configurable threshold is crossed, in a temporary file.
package form
