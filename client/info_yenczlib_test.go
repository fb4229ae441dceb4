package client

import (
	"bytes"
	"compress/flate"
	"fmt"
	"hash/crc32"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/testserver"
)

func deflateRaw(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	assert.NoError(t, err)
	_, err = w.Write(data)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	return buf.Bytes()
}

// yencEncode wraps payload in yEnc lines of the given length, escaping the
// reserved bytes (and a leading dot, which would otherwise be dot-stuffed on
// the wire).
func yencEncode(payload []byte, lineLen int) []byte {
	var buf bytes.Buffer
	col := 0
	for _, p := range payload {
		e := p + 42
		if e == 0x00 || e == 0x0A || e == 0x0D || e == '=' || (col == 0 && e == '.') {
			buf.WriteByte('=')
			buf.WriteByte(e + 64)
			col += 2
		} else {
			buf.WriteByte(e)
			col++
		}
		if col >= lineLen {
			buf.WriteString("\r\n")
			col = 0
		}
	}
	if col > 0 {
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

// xzverResponse builds a complete XZVER wire response: status line, "=ybegin"
// header, yEnc-wrapped raw-deflate payload, "=yend" trailer and sentinel.
func xzverResponse(t *testing.T, content []byte, crc uint32) []byte {
	payload := deflateRaw(t, content)

	var buf bytes.Buffer
	buf.Write(testserver.Status(224, "compressed data follows"))
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=xzver\r\n", len(payload))
	buf.Write(yencEncode(payload, 128))
	fmt.Fprintf(&buf, "=yend size=%d crc32=%08x\r\n", len(payload), crc)
	buf.WriteString(".\r\n")
	return buf.Bytes()
}

func TestYencZlibReader(t *testing.T) {
	content := []byte(overviewLines)
	payload := deflateRaw(t, content)

	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "XZVER 1-2", Respond: xzverResponse(t, content, crc32.ChecksumIEEE(payload))},
		testserver.Exchange{Expect: "DATE", Respond: testserver.Status(111, "20220101144001")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	code, message, err := s.Command("XZVER", "1-2")
	assert.NoError(t, err)
	assert.Equal(t, 224, code)

	lines := collectLines(t, s.Info(code, message, true))
	assert.Equal(t, []string{
		"1\tsubject one\t<one@example.com>\r\n",
		"2\tsubject two\t<two@example.com>\r\n",
	}, lines)

	// The trailer and sentinel were consumed and the connection released.
	_, _, err = s.Command("DATE", "")
	assert.NoError(t, err)
}

func xzverReader(t *testing.T, response []byte) (Reader, func()) {
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "XZVER 1-2", Respond: response},
	)
	s := dialTest(t, ts, nil)

	code, message, err := s.Command("XZVER", "1-2")
	assert.NoError(t, err)

	return s.Info(code, message, true), func() {
		_ = s.Close()
		ts.Close()
	}
}

func drainExpectingDataError(t *testing.T, r Reader, reason string) {
	for r.Next() {
	}
	var derr *common.DataError
	assert.ErrorAs(t, r.Err(), &derr)
	assert.Equal(t, reason, derr.Reason)
}

// A trailer CRC off by one nibble fails the check.
func TestYencZlibReaderBadCRC(t *testing.T) {
	content := []byte(overviewLines)
	payload := deflateRaw(t, content)

	r, done := xzverReader(t, xzverResponse(t, content, crc32.ChecksumIEEE(payload)^0x1))
	defer done()

	drainExpectingDataError(t, r, "Bad yEnc CRC")
}

func TestYencZlibReaderBadHeader(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(testserver.Status(224, "compressed data follows"))
	buf.WriteString("this is not a yenc header\r\n.\r\n")

	r, done := xzverReader(t, buf.Bytes())
	defer done()

	drainExpectingDataError(t, r, "Bad yEnc header")
}

func TestYencZlibReaderMissingTrailer(t *testing.T) {
	content := []byte(overviewLines)
	payload := deflateRaw(t, content)

	var buf bytes.Buffer
	buf.Write(testserver.Status(224, "compressed data follows"))
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=xzver\r\n", len(payload))
	buf.Write(yencEncode(payload, 128))
	buf.WriteString(".\r\n")

	r, done := xzverReader(t, buf.Bytes())
	defer done()

	drainExpectingDataError(t, r, "Missing yEnc trailer")
}

func TestYencZlibReaderTrailerWithoutCRC(t *testing.T) {
	content := []byte(overviewLines)
	payload := deflateRaw(t, content)

	var buf bytes.Buffer
	buf.Write(testserver.Status(224, "compressed data follows"))
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=xzver\r\n", len(payload))
	buf.Write(yencEncode(payload, 128))
	fmt.Fprintf(&buf, "=yend size=%d\r\n", len(payload))
	buf.WriteString(".\r\n")

	r, done := xzverReader(t, buf.Bytes())
	defer done()

	drainExpectingDataError(t, r, "Bad yEnc trailer")
}

func TestYencZlibReaderCorruptDeflate(t *testing.T) {
	// yEnc-wrap bytes that are not a deflate stream.
	garbage := []byte("definitely not deflate data, with enough length to be sure")

	var buf bytes.Buffer
	buf.Write(testserver.Status(224, "compressed data follows"))
	fmt.Fprintf(&buf, "=ybegin line=128 size=%d name=xzver\r\n", len(garbage))
	buf.Write(yencEncode(garbage, 128))
	fmt.Fprintf(&buf, "=yend size=%d crc32=%08x\r\n", len(garbage), crc32.ChecksumIEEE(garbage))
	buf.WriteString(".\r\n")

	r, done := xzverReader(t, buf.Bytes())
	defer done()

	drainExpectingDataError(t, r, "Decompression failed")
}

// A large payload exercises the line re-framing and pending-buffer paths.
func TestYencZlibReaderLargePayload(t *testing.T) {
	var content bytes.Buffer
	for i := 1; i <= 500; i++ {
		fmt.Fprintf(&content, "%d\tsubject %d\t<%d@example.com>\r\n", i, i, i)
	}
	payload := deflateRaw(t, content.Bytes())

	r, done := xzverReader(t, xzverResponse(t, content.Bytes(), crc32.ChecksumIEEE(payload)))
	defer done()

	var lines []string
	for r.Next() {
		lines = append(lines, r.Text())
	}
	assert.NoError(t, r.Err())
	assert.Len(t, lines, 500)
	assert.Equal(t, "1\tsubject 1\t<1@example.com>\r\n", lines[0])
	assert.Equal(t, "500\tsubject 500\t<500@example.com>\r\n", lines[499])
}
