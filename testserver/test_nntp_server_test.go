package testserver

import (
	"bufio"
	"net"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestScriptedExchanges(t *testing.T) {
	ts := NewNNTPServer(t, "200 ready",
		Exchange{Expect: "DATE", Respond: Status(111, "20220101144001")},
		Exchange{Expect: "HELP", Respond: Info(100, "help follows", "ok")},
	)
	defer ts.Close()

	conn, err := net.Dial("tcp", ts.Target())
	assert.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	assert.NoError(t, err)
	assert.Equal(t, "200 ready\r\n", line)

	_, err = conn.Write([]byte("DATE\r\n"))
	assert.NoError(t, err)
	line, _ = r.ReadString('\n')
	assert.Equal(t, "111 20220101144001\r\n", line)

	_, err = conn.Write([]byte("HELP\r\n"))
	assert.NoError(t, err)
	line, _ = r.ReadString('\n')
	assert.Equal(t, "100 help follows\r\n", line)
	line, _ = r.ReadString('\n')
	assert.Equal(t, "ok\r\n", line)
	line, _ = r.ReadString('\n')
	assert.Equal(t, ".\r\n", line)

	// Beyond the script, commands are rejected.
	_, err = conn.Write([]byte("DATE\r\n"))
	assert.NoError(t, err)
	line, _ = r.ReadString('\n')
	assert.Equal(t, "500 command not recognized\r\n", line)
}

func TestReadUntilExchange(t *testing.T) {
	captured := &Captured{}
	ts := NewNNTPServer(t, "200 ready",
		Exchange{Expect: "POST", Respond: Status(340, "send article")},
		Exchange{ReadUntil: ".", Capture: captured, Respond: Status(240, "received")},
	)
	defer ts.Close()

	conn, err := net.Dial("tcp", ts.Target())
	assert.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)
	_, _ = r.ReadString('\n')

	_, _ = conn.Write([]byte("POST\r\n"))
	line, _ := r.ReadString('\n')
	assert.Equal(t, "340 send article\r\n", line)

	_, _ = conn.Write([]byte("body line\r\n.\r\n"))
	line, _ = r.ReadString('\n')
	assert.Equal(t, "240 received\r\n", line)

	assert.Equal(t, []string{"body line", "."}, captured.Lines())
}
