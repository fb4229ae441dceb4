package client

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/damianoneill/nntp/testserver"
)

// yencBodyResponse renders a BODY response carrying yEnc-encoded content.
func yencBodyResponse(plain []byte) []byte {
	var buf bytes.Buffer
	buf.Write(testserver.Status(222, "1001 <body@example.com>"))
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=test.bin\r\n", len(plain))
	buf.Write(yencEncode(plain, 128))
	fmt.Fprintf(&buf, "=yend size=%d crc32=%08x\r\n", len(plain), crc32.ChecksumIEEE(plain))
	buf.WriteString(".\r\n")
	return buf.Bytes()
}

func bodySession(t *testing.T, response []byte) (*Session, func()) {
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "BODY", Respond: response},
	)
	s := dialTest(t, ts, nil)
	return s, func() {
		_ = s.Close()
		ts.Close()
	}
}

func readBody(t *testing.T, s *Session, mode YencMode) []byte {
	code, message, err := s.Command("BODY", "")
	assert.NoError(t, err)
	assert.Equal(t, 222, code)

	body, err := s.ReadBody(code, message, mode)
	assert.NoError(t, err)
	return body
}

func TestReadBodyPlain(t *testing.T) {
	s, done := bodySession(t, testserver.Info(222, "1001 <body@example.com>",
		"a plain text body",
		"with two lines",
	))
	defer done()

	body := readBody(t, s, YencAuto)
	assert.Equal(t, []byte("a plain text body\r\nwith two lines\r\n"), body)
}

// A body opening with yEnc framing is decoded transparently, dropping the
// "=y" framing lines.
func TestReadBodyYencSniffed(t *testing.T) {
	plain := make([]byte, 512)
	for i := range plain {
		plain[i] = byte(i * 7)
	}

	s, done := bodySession(t, yencBodyResponse(plain))
	defer done()

	body := readBody(t, s, YencAuto)
	assert.Equal(t, plain, body)
}

// Blank lines before the yEnc header do not lock the sniffer to plain, and
// the accumulated prefix is discarded once yEnc framing is seen.
func TestReadBodyYencAfterBlankLines(t *testing.T) {
	plain := []byte("payload bytes")

	var buf bytes.Buffer
	buf.Write(testserver.Status(222, "1001 <body@example.com>"))
	buf.WriteString("\r\n\r\n")
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=test.bin\r\n", len(plain))
	buf.Write(yencEncode(plain, 128))
	fmt.Fprintf(&buf, "=yend size=%d crc32=%08x\r\n", len(plain), crc32.ChecksumIEEE(plain))
	buf.WriteString(".\r\n")

	s, done := bodySession(t, buf.Bytes())
	defer done()

	body := readBody(t, s, YencAuto)
	assert.Equal(t, plain, body)
}

// An explicit mode wins over sniffing.
func TestReadBodyForcedOff(t *testing.T) {
	plain := []byte("payload bytes")

	s, done := bodySession(t, yencBodyResponse(plain))
	defer done()

	body := readBody(t, s, YencOff)
	assert.True(t, bytes.HasPrefix(body, []byte("=ybegin")), "framing must be preserved when decoding is off")
}

func TestReadBodyPlainWithLeadingBlank(t *testing.T) {
	s, done := bodySession(t, testserver.Info(222, "1001 <body@example.com>",
		"",
		"text after a blank line",
	))
	defer done()

	body := readBody(t, s, YencAuto)
	assert.Equal(t, []byte("\r\ntext after a blank line\r\n"), body)
}
