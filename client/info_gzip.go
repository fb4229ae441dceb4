package client

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/fifo"
)

// gzipReader yields the lines of a response negotiated with XFEATURE
// COMPRESS GZIP. The terminating ".\r\n" may sit inside the compressed
// stream (the TERMINATOR variant) or follow it as raw bytes; both are
// handled: once the compressed stream ends, remaining lines are read
// straight off the connection.
type gzipReader struct {
	s     *Session
	src   *chunkSource
	gz    *gzip.Reader
	fifo  *fifo.Fifo
	dbuf  []byte
	line  []byte
	count int
	err   error
	done  bool

	// streamDone is set once the compressed stream has been fully
	// decompressed; the sentinel, if not already seen, follows uncompressed.
	streamDone bool
}

func newGzipReader(s *Session) *gzipReader {
	s.generating = true
	s.trace.InfoStart("gzip")
	return &gzipReader{
		s:    s,
		src:  &chunkSource{s: s},
		fifo: fifo.New(nil),
		dbuf: make([]byte, recvSize),
	}
}

// chunkSource adapts the session buffer to the decompressor. Implementing
// io.ByteReader keeps the flate layer from reading beyond the end of the
// compressed stream, so trailing raw bytes stay in the session buffer.
type chunkSource struct {
	s *Session
}

func (c *chunkSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if buf := c.s.buf.Read(len(p)); len(buf) > 0 {
			return copy(p, buf), nil
		}
		if err := c.s.recv(); err != nil {
			return 0, err
		}
	}
}

func (c *chunkSource) ReadByte() (byte, error) {
	var p [1]byte
	if _, err := c.Read(p[:]); err != nil {
		return 0, err
	}
	return p[0], nil
}

// mapInflateError converts decompressor corruption errors to the DataError
// the caller is promised, leaving transport errors untouched.
func mapInflateError(err error) error {
	var corrupt flate.CorruptInputError
	if errors.As(err, &corrupt) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return &common.DataError{Reason: "Decompression failed"}
	}
	return err
}

func (r *gzipReader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	for {
		if line := r.fifo.ReadLine(); line != nil {
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

		if r.streamDone {
			// Sentinel outside the compressed stream.
			line, err := r.s.readLine()
			if err != nil {
				r.fail(err)
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

		if err := r.pump(); err != nil {
			r.fail(err)
			return false
		}
	}
}

// pump feeds one round of decompressed output into the line fifo.
func (r *gzipReader) pump() error {
	if r.gz == nil {
		gz, err := gzip.NewReader(r.src)
		if err != nil {
			return mapInflateError(err)
		}
		gz.Multistream(false)
		r.gz = gz
	}
	n, err := r.gz.Read(r.dbuf)
	if n > 0 {
		r.fifo.Write(r.dbuf[:n])
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		r.streamDone = true
		return nil
	}
	return mapInflateError(err)
}

func (r *gzipReader) fail(err error) {
	r.err = err
	r.s.trace.Error("response", r.s.target, err)
}

func (r *gzipReader) finish() {
	if !r.streamDone && r.gz != nil {
		// The terminator sat inside the compressed stream: consume what is
		// left of it (normally just the gzip trailer) so the connection is
		// left at the response boundary.
		for {
			n, err := r.gz.Read(r.dbuf)
			if n == 0 || err != nil {
				break
			}
		}
	}
	r.done = true
	r.s.generating = false
	r.s.trace.InfoDone("gzip", r.count, r.err)
}

func (r *gzipReader) Bytes() []byte {
	return r.line
}

func (r *gzipReader) Text() string {
	return string(r.line)
}

func (r *gzipReader) Err() error {
	return r.err
}

func (r *gzipReader) Close() error {
	if !r.done {
		r.done = true
		r.s.generating = false
	}
	if r.gz != nil {
		_ = r.gz.Close()
	}
	return nil
}
