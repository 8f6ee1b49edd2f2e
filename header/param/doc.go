// Package param parses the structured option syntax used by headers like
// Content-Type and Content-Disposition: a primary token followed by zero or
// more "; key=value" options, where each value is either a bare token or a
// quoted string.
//
// The grammar is hand-rolled rather than delegated to mime.ParseMediaType
// because that function can't express the two quoting conventions
// multipart/form-data needs to support: legacy backslash escapes and the
// WHATWG percent-escapes browsers emit for filenames.
package param
