// Package client implements the NNTP framing layer and command engine: the
// command/status exchange, lazy multi-line response readers (plain, gzip
// compressed and yEnc+zlib compressed), transparent authentication on a 480
// challenge, and yEnc decoding of article bodies.
package client

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/fifo"
)

const recvSize = 4096

// Session represents one NNTP connection. The protocol is strictly
// request/response: a Session must not be shared between concurrent users,
// and no command may be issued while a response Reader is outstanding.
type Session struct {
	cfg    *Config
	t      Transport
	buf    *fifo.Fifo
	trace  *ClientTrace
	target string

	// generating is true while a lazy response reader is outstanding. It
	// gates Command.
	generating bool

	postingAllowed bool
}

// Dial connects to the target ("host:port"), reads the server greeting and
// delivers a ready Session.
func Dial(ctx context.Context, target string, cfg *Config) (*Session, error) {
	t, err := NewTransport(ctx, target, cfg)
	if err != nil {
		return nil, err
	}
	s, err := NewSession(ctx, t, cfg)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return s, nil
}

// NewSession creates a new NNTP session over the supplied Transport,
// consuming the server greeting. A 4xx or 5xx greeting fails as for Status;
// any other greeting except 200 or 201 fails with a ReplyError.
func NewSession(ctx context.Context, t Transport, cfg *Config) (*Session, error) {
	s := &Session{
		cfg:   resolveConfig(cfg),
		t:     t,
		buf:   fifo.New(nil),
		trace: ContextClientTrace(ctx),
	}
	if ti, ok := t.(*tImpl); ok {
		s.target = ti.target
	}

	code, message, err := s.Status()
	if err != nil {
		s.trace.Error("greeting", s.target, err)
		return nil, err
	}
	if code != 200 && code != 201 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	s.postingAllowed = code == 200

	return s, nil
}

// PostingAllowed reports whether the server greeting advertised posting
// permission (status 200 rather than 201).
func (s *Session) PostingAllowed() bool {
	return s.postingAllowed
}

// Target delivers the address the session was dialled with, when known.
func (s *Session) Target() string {
	return s.target
}

// Close closes the transport unconditionally. No other methods of the
// Session may be called afterwards.
func (s *Session) Close() error {
	return s.t.Close()
}

// recv reads one chunk from the transport into the buffer. A read that
// delivers no data means the remote has closed mid-response.
func (s *Session) recv() error {
	p := make([]byte, recvSize)
	n, err := s.t.Read(p)
	if n > 0 {
		s.buf.Write(p[:n])
		return nil
	}
	if err == nil {
		return errors.New("failed to read from socket")
	}
	return errors.Wrap(err, "failed to read from socket")
}

// readLine returns the next line from the buffer, drawing from the transport
// as needed.
func (s *Session) readLine() ([]byte, error) {
	for {
		if line := s.buf.ReadLine(); line != nil {
			return line, nil
		}
		if err := s.recv(); err != nil {
			return nil, err
		}
	}
}

func (s *Session) write(p []byte) error {
	if _, err := s.t.Write(p); err != nil {
		return errors.Wrap(err, "failed to write to socket")
	}
	return nil
}

// readStatus reads and parses one status line without classifying the code.
func (s *Session) readStatus() (int, string, error) {
	line, err := s.readLine()
	if err != nil {
		return 0, "", err
	}

	trimmed := strings.TrimRight(string(line), " \t\r\n")
	codePart, message := trimmed, ""
	if i := strings.IndexAny(trimmed, " \t"); i >= 0 {
		codePart, message = trimmed[:i], strings.TrimLeft(trimmed[i:], " \t")
	}

	code, err := strconv.Atoi(codePart)
	if err != nil || code < 100 || code >= 600 {
		return 0, "", &common.ProtocolError{Line: trimmed}
	}
	return code, message, nil
}

// classify maps 4xx and 5xx statuses to their error kinds.
func classify(code int, message string) error {
	switch {
	case code >= 400 && code <= 499:
		return &common.TemporaryError{ReplyError: common.ReplyError{Code: code, Message: message}}
	case code >= 500 && code <= 599:
		return &common.PermanentError{ReplyError: common.ReplyError{Code: code, Message: message}}
	}
	return nil
}

// Status reads one response status line. The returned error is a
// ProtocolError for unparseable lines, a TemporaryError for 4xx codes and a
// PermanentError for 5xx codes; in the reply-error cases the code and
// message are still returned.
func (s *Session) Status() (int, string, error) {
	code, message, err := s.readStatus()
	if err != nil {
		return 0, "", err
	}
	return code, message, classify(code, message)
}

func commandLine(verb, args string) []byte {
	if args != "" {
		return []byte(verb + " " + args + "\r\n")
	}
	return []byte(verb + "\r\n")
}

// Command writes a command and reads its status line.
//
// A SyncError is returned if a response reader is still outstanding. A 480
// challenge triggers the AUTHINFO exchange followed by exactly one retry of
// the original command; a final exchange code other than 281 surfaces as a
// ReplyError, while transport and status-line errors are returned as they
// are. The final status is classified as for Status.
func (s *Session) Command(verb, args string) (code int, message string, err error) {
	if s.generating {
		return 0, "", &common.SyncError{Reason: "command issued while a response reader is active"}
	}

	s.trace.CommandStart(verb, args)
	defer func(begin time.Time) {
		s.trace.CommandDone(verb, code, err, time.Since(begin))
	}(time.Now())

	if err = s.write(commandLine(verb, args)); err != nil {
		return 0, "", err
	}
	code, message, err = s.readStatus()
	if err != nil {
		return 0, "", err
	}

	if code == 480 {
		if err = s.authenticate(); err != nil {
			return 0, "", err
		}
		if err = s.write(commandLine(verb, args)); err != nil {
			return 0, "", err
		}
		if code, message, err = s.readStatus(); err != nil {
			return 0, "", err
		}
	}

	return code, message, classify(code, message)
}

// authenticate performs the AUTHINFO USER/PASS exchange. Only a final 281 is
// accepted; anything else is a ReplyError.
func (s *Session) authenticate() (err error) {
	s.trace.AuthStart(s.cfg.Username)
	defer func() { s.trace.AuthDone(s.cfg.Username, err) }()

	code, message, err := s.roundTrip("AUTHINFO USER", s.cfg.Username)
	if err != nil {
		return err
	}
	if code == 381 {
		if code, message, err = s.roundTrip("AUTHINFO PASS", s.cfg.Password); err != nil {
			return err
		}
	}
	if code != 281 {
		return &common.ReplyError{Code: code, Message: message}
	}
	return nil
}

func (s *Session) roundTrip(verb, args string) (int, string, error) {
	if err := s.write(commandLine(verb, args)); err != nil {
		return 0, "", err
	}
	return s.readStatus()
}

// Info delivers the Reader for a multi-line response. A status message
// containing "COMPRESS=GZIP" selects the gzip reader; otherwise yz selects
// the yEnc+zlib reader used by the XZHDR/XZVER commands; otherwise the
// response is read as plain dot-terminated text.
//
// The caller must fully consume (or Close) the Reader before issuing the
// next command.
func (s *Session) Info(code int, message string, yz bool) Reader {
	switch {
	case strings.Contains(message, "COMPRESS=GZIP"):
		return newGzipReader(s)
	case yz:
		return newYencZlibReader(s)
	}
	return newPlainReader(s)
}
