package client

import (
	"bufio"
	"bytes"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/headers"
)

// Post submits an article. After the server's 340 go-ahead the headers, a
// blank line and the dot-stuffed body are written, followed by the ".\r\n"
// terminator. A Message-ID header is generated when the caller supplies
// none.
//
// Body lines may end in "\n" or "\r\n"; both are sent as "\r\n". A line
// containing a NUL or an embedded carriage return is illegal: the body is
// truncated just before it, the terminator is still sent and, once the final
// status has been read, a DataError is returned regardless of that status.
//
// On success the message-id reported by the server is returned, or the empty
// string when the server does not report one.
func (s *Session) Post(hdrs *headers.Dict, body io.Reader) (string, error) {
	code, message, err := s.Command("POST", "")
	if err != nil {
		return "", err
	}
	if code != 340 {
		return "", &common.ReplyError{Code: code, Message: message}
	}

	if hdrs == nil {
		hdrs = headers.New()
	}
	if _, ok := hdrs.Get("Message-ID"); !ok {
		hdrs.Set("Message-ID", generateMessageID(s.target))
	}
	if err := s.write([]byte(headers.Unparse(hdrs))); err != nil {
		return "", err
	}

	illegal, err := s.writeBody(body)
	if err != nil {
		return "", err
	}
	if err := s.write(dotLine); err != nil {
		return "", err
	}

	code, message, err = s.readStatus()
	if err != nil {
		return "", err
	}
	if illegal {
		return "", &common.DataError{Reason: "Illegal characters found"}
	}
	if err := classify(code, message); err != nil {
		return "", err
	}
	if code != 240 {
		return "", &common.ReplyError{Code: code, Message: message}
	}

	return postedMessageID(message), nil
}

// writeBody streams the body a line at a time, dot-stuffing and normalizing
// line endings. It reports whether an illegal line truncated the body.
func (s *Session) writeBody(body io.Reader) (bool, error) {
	if body == nil {
		return false, nil
	}
	br := bufio.NewReader(body)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimSuffix(line, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))
			if bytes.IndexByte(line, 0) >= 0 || bytes.IndexByte(line, '\r') >= 0 {
				return true, nil
			}
			if len(line) > 0 && line[0] == '.' {
				line = append([]byte("."), line...)
			}
			if werr := s.write(append(line, crlf...)); werr != nil {
				return false, werr
			}
		}
		if err != nil {
			if err == io.EOF {
				return false, nil
			}
			return false, err
		}
	}
}

func generateMessageID(target string) string {
	host := "nntp.invalid"
	if target != "" {
		if h, _, err := net.SplitHostPort(target); err == nil && h != "" {
			host = h
		}
	}
	return "<" + uuid.NewString() + "@" + host + ">"
}

// postedMessageID extracts the message-id commonly echoed in the 240 status.
func postedMessageID(message string) string {
	fields := bytes.Fields([]byte(message))
	if len(fields) == 0 {
		return ""
	}
	first := string(fields[0])
	if len(first) > 2 && first[0] == '<' && first[len(first)-1] == '>' {
		return first
	}
	return ""
}
