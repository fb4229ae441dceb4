// Package testserver provides an in-process scripted NNTP server for tests.
// It is test scaffolding only; no attempt is made to implement the protocol
// beyond replaying canned exchanges.
package testserver

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"

	assert "github.com/stretchr/testify/require"
)

// Exchange is one scripted command/response pair. The received command line
// (stripped of its line terminator) must equal Expect; Respond is then
// written verbatim.
//
// When ReadUntil is set the exchange instead swallows incoming lines
// (Expect is ignored) until a line equal to ReadUntil arrives, then writes
// Respond. Swallowed lines, terminator included, are appended to Capture
// when it is non-nil. This serves the POST body, which is streamed rather
// than command/response shaped.
type Exchange struct {
	Expect    string
	ReadUntil string
	Capture   *Captured
	Respond   []byte
}

// Captured accumulates the lines swallowed by a ReadUntil exchange.
type Captured struct {
	mu    sync.Mutex
	lines []string
}

func (c *Captured) append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

// Lines delivers the captured lines, terminator included.
func (c *Captured) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// NNTPServer represents a test NNTP server replaying a script.
type NNTPServer struct {
	listener net.Listener
	greeting string
	script   []Exchange

	mu    sync.Mutex
	conns []net.Conn
}

// NewNNTPServer delivers a test server listening on an ephemeral localhost
// port. Every accepted connection receives the greeting and then works
// through its own copy of the script; commands beyond the script are
// answered with status 500.
func NewNNTPServer(t assert.TestingT, greeting string, script ...Exchange) *NNTPServer {
	listener, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err, "Listen failed")

	ts := &NNTPServer{listener: listener, greeting: greeting, script: script}
	go ts.acceptConnections(t)
	return ts
}

// Port delivers the tcp port number on which the server is listening.
func (ts *NNTPServer) Port() int {
	return ts.listener.Addr().(*net.TCPAddr).Port
}

// Target delivers the host:port address of the server.
func (ts *NNTPServer) Target() string {
	return "localhost:" + strconv.Itoa(ts.Port())
}

// Close closes any resources used by the server.
func (ts *NNTPServer) Close() {
	_ = ts.listener.Close()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, c := range ts.conns {
		_ = c.Close()
	}
}

func (ts *NNTPServer) acceptConnections(t assert.TestingT) {
	for {
		conn, err := ts.listener.Accept()
		if err != nil {
			return
		}
		ts.mu.Lock()
		ts.conns = append(ts.conns, conn)
		ts.mu.Unlock()
		go ts.handle(t, conn)
	}
}

func (ts *NNTPServer) handle(t assert.TestingT, conn net.Conn) {
	if _, err := conn.Write([]byte(ts.greeting + "\r\n")); err != nil {
		return
	}

	script := append([]Exchange(nil), ts.script...)
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")

		if len(script) == 0 {
			if _, err := conn.Write([]byte("500 command not recognized\r\n")); err != nil {
				return
			}
			continue
		}

		ex := script[0]
		if ex.ReadUntil != "" {
			if ex.Capture != nil {
				ex.Capture.append(cmd)
			}
			if cmd != ex.ReadUntil {
				continue
			}
			script = script[1:]
			if _, err := conn.Write(ex.Respond); err != nil {
				return
			}
			continue
		}

		script = script[1:]
		if cmd != ex.Expect {
			t.Errorf("unexpected command %q, want %q", cmd, ex.Expect)
			_, _ = conn.Write([]byte("500 command not recognized\r\n"))
			continue
		}
		if _, err := conn.Write(ex.Respond); err != nil {
			return
		}
	}
}

// Status renders a status line response.
func Status(code int, message string) []byte {
	line := strconv.Itoa(code)
	if message != "" {
		line += " " + message
	}
	return []byte(line + "\r\n")
}

// Info renders a status line followed by a dot-terminated multi-line block.
// The lines are given without terminators.
func Info(code int, message string, lines ...string) []byte {
	out := string(Status(code, message))
	for _, l := range lines {
		out += l + "\r\n"
	}
	return []byte(out + ".\r\n")
}
