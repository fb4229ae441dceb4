package client

import "bytes"

// dotLine is the multi-line response terminator.
var dotLine = []byte(".\r\n")

// Reader is a pull-based iterator over the lines of a multi-line response.
//
// Next advances to the next line, returning false at the end of the response
// or on error; Err distinguishes the two. Bytes and Text return the current
// line with its trailing "\r\n" preserved and dot-stuffing removed. The
// slice returned by Bytes is only valid until the next call to Next.
//
// A Reader owns the connection until it terminates: it must be fully
// consumed, or Closed, before another command is issued. Close releases the
// connection without consuming the remaining response, which leaves the
// session unusable for further commands unless the reader had already
// terminated.
type Reader interface {
	Next() bool
	Bytes() []byte
	Text() string
	Err() error
	Close() error
}

// plainReader yields the lines of a dot-terminated textual response.
type plainReader struct {
	s     *Session
	line  []byte
	count int
	err   error
	done  bool
}

func newPlainReader(s *Session) *plainReader {
	s.generating = true
	s.trace.InfoStart("plain")
	return &plainReader{s: s}
}

func (r *plainReader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	line, err := r.s.readLine()
	if err != nil {
		r.err = err
		r.s.trace.Error("response", r.s.target, err)
		return false
	}
	if bytes.Equal(line, dotLine) {
		r.finish()
		return false
	}
	if line[0] == '.' {
		line = line[1:]
	}
	r.line = line
	r.count++
	return true
}

func (r *plainReader) finish() {
	r.done = true
	r.s.generating = false
	r.s.trace.InfoDone("plain", r.count, r.err)
}

func (r *plainReader) Bytes() []byte {
	return r.line
}

func (r *plainReader) Text() string {
	return string(r.line)
}

func (r *plainReader) Err() error {
	return r.err
}

func (r *plainReader) Close() error {
	if !r.done {
		r.done = true
		r.s.generating = false
	}
	return nil
}
