// Package ops provides typed NNTP operations over a client Session: group
// selection, article retrieval, the LIST family, overview and header range
// commands (including their compressed XZ* variants) and posting.
package ops

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/damianoneill/nntp/client"
	"github.com/damianoneill/nntp/common"
	"github.com/damianoneill/nntp/headers"
)

// Session wraps a client.Session with one method per NNTP command. Each
// method verifies the expected status code for its command. A 4xx or 5xx
// status fails with a TemporaryError or PermanentError; any other unexpected
// well-formed status fails with a ReplyError.
type Session struct {
	c *client.Session

	overviewFmt []common.OverviewField
	fmtCached   bool
}

// NewSession dials the target, reads the greeting and switches the server
// into reader mode (MODE READER).
func NewSession(ctx context.Context, target string, cfg *client.Config) (*Session, error) {
	c, err := client.Dial(ctx, target, cfg)
	if err != nil {
		return nil, err
	}
	s := FromClient(c)
	if _, err := s.ModeReader(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return s, nil
}

// FromClient wraps an established client session without issuing any
// command. Useful against servers that do not implement MODE READER.
func FromClient(c *client.Session) *Session {
	return &Session{c: c}
}

// Client exposes the underlying session, for raw commands and streaming
// consumption of large responses.
func (s *Session) Client() *client.Session {
	return s.c
}

// Close closes the connection immediately. Prefer Quit for a graceful
// shutdown.
func (s *Session) Close() error {
	return s.c.Close()
}

// collect drains a response reader, applying fn to each line.
func collect(r client.Reader, fn func(line string) error) error {
	for r.Next() {
		if err := fn(r.Text()); err != nil {
			_ = r.Close()
			return err
		}
	}
	return r.Err()
}

// Capabilities issues CAPABILITIES, returning one capability per line. The
// keyword is passed through when non-empty.
func (s *Session) Capabilities(keyword string) ([]string, error) {
	code, message, err := s.c.Command("CAPABILITIES", keyword)
	if err != nil {
		return nil, err
	}
	if code != 101 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.stringList(code, message)
}

// ModeReader issues MODE READER, returning whether posting is allowed.
func (s *Session) ModeReader() (bool, error) {
	code, message, err := s.c.Command("MODE READER", "")
	if err != nil {
		return false, err
	}
	if code != 200 && code != 201 {
		return false, &common.ReplyError{Code: code, Message: message}
	}
	return code == 200, nil
}

// Quit asks the server to close the connection, then closes the client side.
func (s *Session) Quit() error {
	code, message, err := s.c.Command("QUIT", "")
	if err != nil {
		return err
	}
	if code != 205 {
		return &common.ReplyError{Code: code, Message: message}
	}
	return s.c.Close()
}

// Date issues DATE, returning the server's idea of UTC time.
func (s *Session) Date() (time.Time, error) {
	code, message, err := s.c.Command("DATE", "")
	if err != nil {
		return time.Time{}, err
	}
	if code != 111 {
		return time.Time{}, &common.ReplyError{Code: code, Message: message}
	}
	return common.ParseDate(message)
}

// Help issues HELP, returning the server's help text.
func (s *Session) Help() (string, error) {
	code, message, err := s.c.Command("HELP", "")
	if err != nil {
		return "", err
	}
	if code != 100 {
		return "", &common.ReplyError{Code: code, Message: message}
	}
	var b strings.Builder
	err = collect(s.c.Info(code, message, false), func(line string) error {
		b.WriteString(line)
		return nil
	})
	return b.String(), err
}

// sinceArg renders a timestamp for NEWGROUPS/NEWNEWS. Naive callers should
// pass any zone; the wire form is always GMT.
func sinceArg(since time.Time) string {
	return since.UTC().Format("20060102 150405") + " GMT"
}

// NewGroups issues NEWGROUPS, listing newsgroups created since the
// timestamp.
func (s *Session) NewGroups(since time.Time) ([]common.Newsgroup, error) {
	code, message, err := s.c.Command("NEWGROUPS", sinceArg(since))
	if err != nil {
		return nil, err
	}
	if code != 231 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.newsgroupList(code, message)
}

// NewNews issues NEWNEWS, listing message-ids of articles posted to matching
// groups since the timestamp.
func (s *Session) NewNews(pattern string, since time.Time) ([]string, error) {
	code, message, err := s.c.Command("NEWNEWS", pattern+" "+sinceArg(since))
	if err != nil {
		return nil, err
	}
	if code != 230 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.stringList(code, message)
}

// ListActive issues LIST (or LIST ACTIVE when a pattern is given), listing
// matching newsgroups.
func (s *Session) ListActive(pattern string) ([]common.Newsgroup, error) {
	verb := "LIST"
	if pattern != "" {
		verb = "LIST ACTIVE"
	}
	code, message, err := s.c.Command(verb, pattern)
	if err != nil {
		return nil, err
	}
	if code != 215 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.newsgroupList(code, message)
}

// GroupTime is one LIST ACTIVE.TIMES entry.
type GroupTime struct {
	Name    string
	Created time.Time
	Creator string
}

// ListActiveTimes issues LIST ACTIVE.TIMES.
func (s *Session) ListActiveTimes() ([]GroupTime, error) {
	code, message, err := s.c.Command("LIST ACTIVE.TIMES", "")
	if err != nil {
		return nil, err
	}
	if code != 215 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	var result []GroupTime
	err = collect(s.c.Info(code, message, false), func(line string) error {
		parts := strings.Fields(line)
		if len(parts) < 3 {
			return &common.DataError{Reason: "Invalid LIST ACTIVE.TIMES"}
		}
		created, perr := common.ParseEpoch(parts[1])
		if perr != nil {
			return &common.DataError{Reason: "Invalid LIST ACTIVE.TIMES"}
		}
		result = append(result, GroupTime{Name: parts[0], Created: created, Creator: parts[2]})
		return nil
	})
	return result, err
}

// ListHeaders issues LIST HEADERS, listing the fields retrievable via HDR.
// The variant is "MSGID", "RANGE" or empty.
func (s *Session) ListHeaders(variant string) ([]string, error) {
	code, message, err := s.c.Command("LIST HEADERS", variant)
	if err != nil {
		return nil, err
	}
	if code != 215 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.stringList(code, message)
}

// GroupDescription is one LIST NEWSGROUPS entry.
type GroupDescription struct {
	Name        string
	Description string
}

// ListNewsgroups issues LIST NEWSGROUPS, listing matching groups with their
// short descriptions.
func (s *Session) ListNewsgroups(pattern string) ([]GroupDescription, error) {
	code, message, err := s.c.Command("LIST NEWSGROUPS", pattern)
	if err != nil {
		return nil, err
	}
	if code != 215 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	var result []GroupDescription
	err = collect(s.c.Info(code, message, false), func(line string) error {
		parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
		g := GroupDescription{Name: parts[0]}
		if len(parts) > 1 {
			g.Description = strings.TrimSpace(parts[1])
		}
		result = append(result, g)
		return nil
	})
	return result, err
}

// ListOverviewFmt issues LIST OVERVIEW.FMT, describing the overview database
// fields in order.
func (s *Session) ListOverviewFmt() ([]common.OverviewField, error) {
	code, message, err := s.c.Command("LIST OVERVIEW.FMT", "")
	if err != nil {
		return nil, err
	}
	if code != 215 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	var result []common.OverviewField
	err = collect(s.c.Info(code, message, false), func(line string) error {
		parts := strings.Split(strings.TrimRight(line, " \t\r\n"), ":")
		if len(parts) != 2 {
			return &common.DataError{Reason: "Invalid LIST OVERVIEW.FMT"}
		}
		name, suffix := parts[0], parts[1]
		if suffix != "" && name == "" {
			name, suffix = suffix, name
		}
		if suffix != "" && suffix != "full" {
			return &common.DataError{Reason: "Invalid LIST OVERVIEW.FMT"}
		}
		result = append(result, common.OverviewField{Name: name, Full: suffix == "full"})
		return nil
	})
	return result, err
}

// ListExtensions issues LIST EXTENSIONS.
func (s *Session) ListExtensions() ([]string, error) {
	code, message, err := s.c.Command("LIST EXTENSIONS", "")
	if err != nil {
		return nil, err
	}
	if code != 202 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.stringList(code, message)
}

// Group summarises a GROUP response.
type Group struct {
	Total int64
	First int64
	Last  int64
	Name  string
}

// SelectGroup issues GROUP, selecting name as the current newsgroup.
func (s *Session) SelectGroup(name string) (Group, error) {
	code, message, err := s.c.Command("GROUP", name)
	if err != nil {
		return Group{}, err
	}
	if code != 211 {
		return Group{}, &common.ReplyError{Code: code, Message: message}
	}

	parts := strings.Fields(message)
	if len(parts) < 4 {
		return Group{}, &common.DataError{Reason: "Invalid GROUP status " + strconv.Quote(message)}
	}
	total, err1 := strconv.ParseInt(parts[0], 10, 64)
	first, err2 := strconv.ParseInt(parts[1], 10, 64)
	last, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return Group{}, &common.DataError{Reason: "Invalid GROUP status " + strconv.Quote(message)}
	}
	return Group{Total: total, First: first, Last: last, Name: parts[3]}, nil
}

// Next issues NEXT, advancing the current article and returning its number
// and message-id.
func (s *Session) Next() (int64, string, error) {
	return s.pointerMove("NEXT")
}

// Last issues LAST, stepping the current article back and returning its
// number and message-id.
func (s *Session) Last() (int64, string, error) {
	return s.pointerMove("LAST")
}

func (s *Session) pointerMove(verb string) (int64, string, error) {
	code, message, err := s.c.Command(verb, "")
	if err != nil {
		return 0, "", err
	}
	if code != 223 {
		return 0, "", &common.ReplyError{Code: code, Message: message}
	}
	parts := strings.Fields(message)
	if len(parts) < 2 {
		return 0, "", &common.DataError{Reason: "Invalid " + verb + " status"}
	}
	article, perr := strconv.ParseInt(parts[0], 10, 64)
	if perr != nil {
		return 0, "", &common.DataError{Reason: "Invalid " + verb + " status"}
	}
	return article, parts[1], nil
}

func msgidArg(id common.MsgIDRange) string {
	if id == nil {
		return ""
	}
	return common.UnparseMsgIDRange(id)
}

// Article issues ARTICLE, returning the article number, parsed headers and
// body. With client.YencAuto, a Subject containing "yEnc" or a body opening
// with yEnc framing turns decoding on.
func (s *Session) Article(id common.MsgIDRange, mode client.YencMode) (int64, *headers.Dict, []byte, error) {
	code, message, err := s.c.Command("ARTICLE", msgidArg(id))
	if err != nil {
		return 0, nil, nil, err
	}
	if code != 220 {
		return 0, nil, nil, &common.ReplyError{Code: code, Message: message}
	}

	first, _, _ := strings.Cut(message, " ")
	articleno, perr := strconv.ParseInt(first, 10, 64)
	if perr != nil {
		return 0, nil, nil, &common.ProtocolError{Line: message}
	}

	// The header block and body share one response: parsing the headers
	// stops at the separating blank line, and the body is read from there.
	hdrs, err := headers.Parse(s.c.Info(code, message, false))
	if err != nil {
		return 0, nil, nil, err
	}
	if mode == client.YencAuto && strings.Contains(hdrs.Value("Subject"), "yEnc") {
		mode = client.YencOn
	}
	body, err := s.c.ReadBody(code, message, mode)
	if err != nil {
		return 0, nil, nil, err
	}
	return articleno, hdrs, body, nil
}

// Head issues HEAD, returning the parsed headers.
func (s *Session) Head(id common.MsgIDRange) (*headers.Dict, error) {
	code, message, err := s.c.Command("HEAD", msgidArg(id))
	if err != nil {
		return nil, err
	}
	if code != 221 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return headers.Parse(s.c.Info(code, message, false))
}

// Body issues BODY, returning the article body with yEnc handling per mode.
func (s *Session) Body(id common.MsgIDRange, mode client.YencMode) ([]byte, error) {
	code, message, err := s.c.Command("BODY", msgidArg(id))
	if err != nil {
		return nil, err
	}
	if code != 222 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.c.ReadBody(code, message, mode)
}

// HeaderEntry is one row of an HDR/XHDR/XPAT response.
type HeaderEntry struct {
	Article int64
	Value   string
}

// Hdr issues HDR for one header field over a message-id or range.
func (s *Session) Hdr(field string, id common.MsgIDRange) ([]HeaderEntry, error) {
	return s.hdr("HDR", field, id)
}

// XHdr issues XHDR. See Hdr.
func (s *Session) XHdr(field string, id common.MsgIDRange) ([]HeaderEntry, error) {
	return s.hdr("XHDR", field, id)
}

// XZHdr issues XZHDR, the compressed variant of XHDR.
func (s *Session) XZHdr(field string, id common.MsgIDRange) ([]HeaderEntry, error) {
	return s.hdr("XZHDR", field, id)
}

func (s *Session) hdr(verb, field string, id common.MsgIDRange) ([]HeaderEntry, error) {
	args := field
	if id != nil {
		args += " " + common.UnparseMsgIDRange(id)
	}
	code, message, err := s.c.Command(verb, args)
	if err != nil {
		return nil, err
	}
	if code != 221 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}

	var result []HeaderEntry
	err = collect(s.c.Info(code, message, verb == "XZHDR"), func(line string) error {
		parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 2)
		article, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil {
			return &common.DataError{Reason: "Invalid " + verb + " response"}
		}
		entry := HeaderEntry{Article: article}
		if len(parts) > 1 {
			entry.Value = parts[1]
		}
		result = append(result, entry)
		return nil
	})
	return result, err
}

// Overview is one row of an XOVER/XZVER response.
type Overview struct {
	Article int64
	Headers *headers.Dict
}

// XOver issues XOVER over a range, returning one overview entry per article.
// Field names follow LIST OVERVIEW.FMT when the server supports it, falling
// back to the RFC 2980 required fields.
func (s *Session) XOver(r common.Range) ([]Overview, error) {
	return s.xover("XOVER", r)
}

// XZVer issues XZVER, the compressed variant of XOVER.
func (s *Session) XZVer(r common.Range) ([]Overview, error) {
	return s.xover("XZVER", r)
}

func (s *Session) xover(verb string, r common.Range) ([]Overview, error) {
	// The overview format is fetched up front: it needs a command of its
	// own, which is impossible once the XOVER reader is active.
	fields := s.OverviewFmt()

	args := ""
	if r != nil {
		args = common.UnparseRange(r)
	}
	code, message, err := s.c.Command(verb, args)
	if err != nil {
		return nil, err
	}
	if code != 224 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}

	var result []Overview
	err = collect(s.c.Info(code, message, verb == "XZVER"), func(line string) error {
		parts := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
		article, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil {
			return &common.DataError{Reason: "Invalid " + verb + " response"}
		}
		hdrs := headers.New()
		for i, field := range fields {
			if i+1 >= len(parts) {
				break
			}
			hdrs.Set(field.Name, overviewValue(field, parts[i+1]))
		}
		result = append(result, Overview{Article: article, Headers: hdrs})
		return nil
	})
	return result, err
}

// overviewValue strips the "<name>: " prefix that full overview fields carry
// on the wire.
func overviewValue(field common.OverviewField, value string) string {
	if !field.Full {
		return value
	}
	if len(value) > len(field.Name) && strings.EqualFold(value[:len(field.Name)], field.Name) {
		rest := value[len(field.Name):]
		if rest[0] == ':' {
			return strings.TrimPrefix(rest[1:], " ")
		}
	}
	return value
}

// OverviewFmt delivers the overview field order, cached after the first
// successful LIST OVERVIEW.FMT. Servers without that command get the
// RFC 2980 seven-field fallback.
func (s *Session) OverviewFmt() []common.OverviewField {
	if !s.fmtCached {
		fields, err := s.ListOverviewFmt()
		if err != nil {
			fields = common.DefaultOverviewFmt
		}
		s.overviewFmt = fields
		s.fmtCached = true
	}
	return s.overviewFmt
}

// XPat issues XPAT, matching a header field against patterns over a
// message-id or range.
func (s *Session) XPat(field string, id common.MsgIDRange, patterns ...string) ([]string, error) {
	args := strings.Join(append([]string{field, common.UnparseMsgIDRange(id)}, patterns...), " ")
	code, message, err := s.c.Command("XPAT", args)
	if err != nil {
		return nil, err
	}
	if code != 221 {
		return nil, &common.ReplyError{Code: code, Message: message}
	}
	return s.stringList(code, message)
}

// XFeatureCompressGzip issues XFEATURE COMPRESS GZIP, switching subsequent
// range responses to gzip framing. With terminator set, the server is asked
// to compress the terminating line into the stream.
func (s *Session) XFeatureCompressGzip(terminator bool) error {
	args := ""
	if terminator {
		args = "TERMINATOR"
	}
	code, message, err := s.c.Command("XFEATURE COMPRESS GZIP", args)
	if err != nil {
		return err
	}
	if code != 290 {
		return &common.ReplyError{Code: code, Message: message}
	}
	return nil
}

// Post submits an article. See client.Session.Post.
func (s *Session) Post(hdrs *headers.Dict, body io.Reader) (string, error) {
	return s.c.Post(hdrs, body)
}

// stringList drains a textual response into whitespace-trimmed lines.
func (s *Session) stringList(code int, message string) ([]string, error) {
	var result []string
	err := collect(s.c.Info(code, message, false), func(line string) error {
		result = append(result, strings.TrimSpace(line))
		return nil
	})
	return result, err
}

// newsgroupList drains a response of newsgroup info lines.
func (s *Session) newsgroupList(code int, message string) ([]common.Newsgroup, error) {
	var result []common.Newsgroup
	err := collect(s.c.Info(code, message, false), func(line string) error {
		g, perr := common.ParseNewsgroup(line)
		if perr != nil {
			return perr
		}
		result = append(result, g)
		return nil
	})
	return result, err
}
