// Package common defines the shared NNTP model types, the error taxonomy and
// the parsers used at the protocol boundary.
package common

import "strconv"

// Newsgroup summarises one newsgroup as described by a LIST or NEWGROUPS
// response line. Low and High are the water marks in on-wire order.
type Newsgroup struct {
	Name   string
	Low    int64
	High   int64
	Status string
}

// Range selects the articles a range-style command operates on. The variants
// are Article (a single number), From (a half-open interval) and Span (a
// closed interval).
type Range interface {
	rangeString() string
}

// MsgIDRange is a Range or a message-id argument. All Range variants satisfy
// it, as does MsgID.
type MsgIDRange interface {
	msgidRangeString() string
}

// Article selects a single article by number.
type Article int64

func (a Article) rangeString() string      { return strconv.FormatInt(int64(a), 10) }
func (a Article) msgidRangeString() string { return a.rangeString() }

// From selects all articles from a number onwards.
type From int64

func (f From) rangeString() string      { return strconv.FormatInt(int64(f), 10) + "-" }
func (f From) msgidRangeString() string { return f.rangeString() }

// Span selects the closed interval [First, Last].
type Span struct {
	First int64
	Last  int64
}

func (s Span) rangeString() string {
	return strconv.FormatInt(s.First, 10) + "-" + strconv.FormatInt(s.Last, 10)
}
func (s Span) msgidRangeString() string { return s.rangeString() }

// MsgID selects an article by message-id. It is passed through to the wire
// unchanged.
type MsgID string

func (m MsgID) msgidRangeString() string { return string(m) }

// UnparseRange renders a range argument in wire form ("N", "N-" or "N-M").
func UnparseRange(r Range) string {
	return r.rangeString()
}

// UnparseMsgIDRange renders a message-id or range argument in wire form.
func UnparseMsgIDRange(r MsgIDRange) string {
	return r.msgidRangeString()
}

// OverviewField describes one entry of the overview database format. Full
// indicates that the on-wire value is prefixed with "<name>: " and must have
// that prefix stripped on read.
type OverviewField struct {
	Name string
	Full bool
}

// DefaultOverviewFmt is the seven-field overview format required by RFC 2980,
// used when the server does not support LIST OVERVIEW.FMT.
var DefaultOverviewFmt = []OverviewField{
	{Name: "Subject"},
	{Name: "From"},
	{Name: "Date"},
	{Name: "Message-ID"},
	{Name: "References"},
	{Name: "Bytes"},
	{Name: "Lines"},
}
