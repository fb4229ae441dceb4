package client

import (
	"strings"
	"testing"

	assert "github.com/stretchr/testify/require"

	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/headers"
	"github.com/damianoneill/nntp/testserver"
)

func postHeaders() *headers.Dict {
	return headers.FromPairs([][2]string{
		{"From", `"someone" <someone@example.com>`},
		{"Newsgroups", "misc.test"},
		{"Subject", "test article"},
		{"Message-ID", "<post1@example.com>"},
	})
}

func TestPost(t *testing.T) {
	captured := &testserver.Captured{}
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "POST", Respond: testserver.Status(340, "send article")},
		testserver.Exchange{ReadUntil: ".", Capture: captured, Respond: testserver.Status(240, "<post1@example.com> article received")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	msgid, err := s.Post(postHeaders(), strings.NewReader("first line\nsecond line\r\n.leading dot\n"))
	assert.NoError(t, err)
	assert.Equal(t, "<post1@example.com>", msgid)

	assert.Equal(t, []string{
		`From: "someone" <someone@example.com>`,
		"Newsgroups: misc.test",
		"Subject: test article",
		"Message-ID: <post1@example.com>",
		"",
		"first line",
		"second line",
		"..leading dot",
		".",
	}, captured.Lines())
}

// Lines with embedded NUL or CR truncate the body; the terminator is still
// sent, the final status is read, and a DataError surfaces regardless of
// that status.
func TestPostIllegalCharacters(t *testing.T) {
	captured := &testserver.Captured{}
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "POST", Respond: testserver.Status(340, "send article")},
		testserver.Exchange{ReadUntil: ".", Capture: captured, Respond: testserver.Status(240, "article received")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	_, err := s.Post(postHeaders(),
		strings.NewReader("a perfectly legal first line\r\nthis\x00contains\rillegal\ncharacters"))
	var derr *common.DataError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, "Illegal characters found", derr.Reason)

	lines := captured.Lines()
	assert.Contains(t, lines, "a perfectly legal first line")
	assert.NotContains(t, strings.Join(lines, "\n"), "illegal")
	assert.Equal(t, ".", lines[len(lines)-1])
}

func TestPostRejected(t *testing.T) {
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "POST", Respond: testserver.Status(440, "posting not allowed")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	_, err := s.Post(postHeaders(), strings.NewReader("body"))
	var terr *common.TemporaryError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, 440, terr.Code)
}

func TestPostFinalStatusRejected(t *testing.T) {
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "POST", Respond: testserver.Status(340, "send article")},
		testserver.Exchange{ReadUntil: ".", Respond: testserver.Status(441, "posting failed")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	_, err := s.Post(postHeaders(), strings.NewReader("body\n"))
	var terr *common.TemporaryError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, 441, terr.Code)
}

// A missing Message-ID is filled in before the headers hit the wire.
func TestPostGeneratesMessageID(t *testing.T) {
	captured := &testserver.Captured{}
	ts := testserver.NewNNTPServer(t, "200 ready",
		testserver.Exchange{Expect: "POST", Respond: testserver.Status(340, "send article")},
		testserver.Exchange{ReadUntil: ".", Capture: captured, Respond: testserver.Status(240, "article received")},
	)
	defer ts.Close()

	s := dialTest(t, ts, nil)
	defer s.Close()

	hdrs := headers.FromPairs([][2]string{{"Newsgroups", "misc.test"}, {"Subject", "s"}})
	msgid, err := s.Post(hdrs, strings.NewReader("body\n"))
	assert.NoError(t, err)
	assert.Equal(t, "", msgid, "server did not echo a message-id")

	generated, ok := hdrs.Get("Message-ID")
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(generated, "<"))
	assert.True(t, strings.HasSuffix(generated, ">"))
	assert.Contains(t, strings.Join(captured.Lines(), "\n"), "Message-ID: "+generated)
}
