package client

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/fifo"
	"github.com/damianoneill/nntp/yenc"
)

var (
	ybeginPrefix = []byte("=ybegin")
	yendPrefix   = []byte("=yend")
)

// yencZlibReader yields the lines of an XZHDR/XZVER style response: a plain
// dot-terminated response whose body is one yEnc stream carrying a raw
// deflate stream. The yEnc trailer CRC is verified against the decoder's
// running CRC once the response terminates.
type yencZlibReader struct {
	s     *Session
	plain *plainReader
	src   *yencSource
	fr    io.ReadCloser
	fifo  *fifo.Fifo
	dbuf  []byte
	line  []byte
	count int
	err   error
	done  bool

	headerRead bool
	streamDone bool
}

func newYencZlibReader(s *Session) *yencZlibReader {
	s.trace.InfoStart("yenczlib")
	plain := newPlainReader(s)
	src := &yencSource{plain: plain, dec: yenc.NewDecoder()}
	return &yencZlibReader{
		s:     s,
		plain: plain,
		src:   src,
		fr:    flate.NewReader(src),
		fifo:  fifo.New(nil),
		dbuf:  make([]byte, recvSize),
	}
}

// yencSource decodes the yEnc body lines of the enclosing plain response,
// capturing the "=yend" trailer as it passes.
type yencSource struct {
	plain   *plainReader
	dec     *yenc.Decoder
	pending []byte
	trailer []byte
}

func (y *yencSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if len(y.pending) > 0 {
			n := copy(p, y.pending)
			y.pending = y.pending[n:]
			return n, nil
		}
		if !y.plain.Next() {
			if err := y.plain.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		line := y.plain.Bytes()
		if bytes.HasPrefix(line, yendPrefix) {
			y.trailer = append([]byte(nil), line...)
			continue
		}
		y.pending = y.dec.Decode(line)
	}
}

func (r *yencZlibReader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	if !r.headerRead {
		if err := r.readHeader(); err != nil {
			r.fail(err)
			return false
		}
	}
	for {
		if line := r.fifo.ReadLine(); line != nil {
			r.line = line
			r.count++
			return true
		}
		if r.streamDone {
			if err := r.checkTrailer(); err != nil {
				r.fail(err)
			} else {
				r.finish()
			}
			return false
		}
		if err := r.pump(); err != nil {
			r.fail(err)
			return false
		}
	}
}

// readHeader consumes the "=ybegin" line that opens the yEnc stream.
func (r *yencZlibReader) readHeader() error {
	if !r.plain.Next() {
		if err := r.plain.Err(); err != nil {
			return err
		}
		return &common.DataError{Reason: "Bad yEnc header"}
	}
	if !bytes.HasPrefix(r.plain.Bytes(), ybeginPrefix) {
		return &common.DataError{Reason: "Bad yEnc header"}
	}
	r.headerRead = true
	return nil
}

// pump inflates one round of decoded yEnc data into the line fifo. When the
// deflate stream ends the rest of the enclosing response (the trailer and
// the dot sentinel) is drained so the response is fully consumed.
func (r *yencZlibReader) pump() error {
	n, err := r.fr.Read(r.dbuf)
	if n > 0 {
		r.fifo.Write(r.dbuf[:n])
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, io.EOF) {
		return mapInflateError(err)
	}
	if err := r.drain(); err != nil {
		return err
	}
	r.streamDone = true
	return nil
}

func (r *yencZlibReader) drain() error {
	var scratch [64]byte
	for {
		_, err := r.src.Read(scratch[:])
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *yencZlibReader) checkTrailer() error {
	if r.src.trailer == nil {
		return &common.DataError{Reason: "Missing yEnc trailer"}
	}
	crc, ok := yenc.TrailerCRC32(r.src.trailer)
	if !ok {
		return &common.DataError{Reason: "Bad yEnc trailer"}
	}
	if crc != r.src.dec.CRC32() {
		return &common.DataError{Reason: "Bad yEnc CRC"}
	}
	return nil
}

func (r *yencZlibReader) fail(err error) {
	r.err = err
	r.done = true
	r.s.trace.Error("response", r.s.target, err)
}

func (r *yencZlibReader) finish() {
	r.done = true
	r.s.trace.InfoDone("yenczlib", r.count, r.err)
}

func (r *yencZlibReader) Bytes() []byte {
	return r.line
}

func (r *yencZlibReader) Text() string {
	return string(r.line)
}

func (r *yencZlibReader) Err() error {
	return r.err
}

func (r *yencZlibReader) Close() error {
	_ = r.fr.Close()
	return r.plain.Close()
}
