package client

import (
	"bytes"

	"github.com/damianoneill/nntp/yenc"
)

// YencMode controls yEnc decoding of article bodies.
type YencMode int

const (
	// YencAuto sniffs the body: a first non-blank line starting "=y" turns
	// decoding on, any other content locks it off.
	YencAuto YencMode = iota
	// YencOn decodes the body as a yEnc stream.
	YencOn
	// YencOff returns the body bytes untouched.
	YencOff
)

var crlf = []byte("\r\n")

// ReadBody consumes the multi-line body of an ARTICLE or BODY response,
// transparently decoding yEnc content according to mode. When the body is
// decoded, the "=ybegin" and "=yend" framing lines are dropped from the
// returned bytes; with decoding off they are returned as received.
func (s *Session) ReadBody(code int, message string, mode YencMode) ([]byte, error) {
	r := s.Info(code, message, false)
	decoder := yenc.NewDecoder()

	var body bytes.Buffer
	for r.Next() {
		line := r.Bytes()

		if mode == YencAuto {
			if bytes.HasPrefix(line, []byte("=y")) {
				mode = YencOn
				body.Reset()
			} else if !bytes.Equal(line, crlf) {
				mode = YencOff
			}
		}

		if mode == YencOn {
			if bytes.HasPrefix(line, []byte("=y")) {
				continue
			}
			line = decoder.Decode(line)
		}

		body.Write(line)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	return body.Bytes(), nil
}
