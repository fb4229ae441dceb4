// Package headers provides the case-insensitive, insertion-ordered mapping
// used for article and overview headers, and the parse/unparse helpers for
// the header block of an article.
package headers

import (
	"strings"

	"github.com/damianoneill/nntp/common"
)

// Dict is a mapping from header name to value. Lookups are case-insensitive;
// iteration follows insertion order. Setting an existing name (in any case)
// replaces the value but keeps the position and spelling of the first
// insertion.
type Dict struct {
	names  []string
	values map[string]string
}

// New delivers an empty Dict.
func New() *Dict {
	return &Dict{values: map[string]string{}}
}

// FromPairs delivers a Dict populated from name/value pairs in order.
func FromPairs(pairs [][2]string) *Dict {
	d := New()
	for _, p := range pairs {
		d.Set(p[0], p[1])
	}
	return d
}

func fold(name string) string {
	return strings.ToLower(name)
}

// Len reports the number of headers.
func (d *Dict) Len() int {
	return len(d.names)
}

// Get returns the value for name, matched case-insensitively.
func (d *Dict) Get(name string) (string, bool) {
	v, ok := d.values[fold(name)]
	return v, ok
}

// Value returns the value for name, or the empty string when absent.
func (d *Dict) Value(name string) string {
	return d.values[fold(name)]
}

// Set stores a value for name.
func (d *Dict) Set(name, value string) {
	key := fold(name)
	if _, ok := d.values[key]; !ok {
		d.names = append(d.names, name)
	}
	d.values[key] = value
}

// Del removes name, reporting whether it was present.
func (d *Dict) Del(name string) bool {
	key := fold(name)
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, n := range d.names {
		if fold(n) == key {
			d.names = append(d.names[:i], d.names[i+1:]...)
			break
		}
	}
	return true
}

// Names returns the header names in insertion order, with the spelling of
// their first insertion.
func (d *Dict) Names() []string {
	return append([]string(nil), d.names...)
}

// Each calls fn for every header in insertion order.
func (d *Dict) Each(fn func(name, value string)) {
	for _, n := range d.names {
		fn(n, d.values[fold(n)])
	}
}

// LineSource is the subset of a response reader needed to parse a header
// block.
type LineSource interface {
	Next() bool
	Text() string
	Err() error
}

// Parse reads header lines from src until an empty line (or the end of the
// source) and returns them as a Dict. Continuation lines are folded into the
// preceding value with their surrounding whitespace stripped. Repeated
// headers take the last value.
func Parse(src LineSource) (*Dict, error) {
	d := New()
	last := ""
	for src.Next() {
		line := src.Text()
		if line == "" || line == "\r\n" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if last == "" {
				return nil, &common.DataError{Reason: "First header is a continuation"}
			}
			d.Set(last, d.Value(last)+strings.TrimRight(line, " \t\r\n"))
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &common.DataError{Reason: "Invalid header"}
		}
		name = strings.TrimSpace(name)
		d.Set(name, strings.TrimSpace(value))
		last = name
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

type stringSource struct {
	lines []string
	line  string
}

func (s *stringSource) Next() bool {
	if len(s.lines) == 0 {
		return false
	}
	s.line, s.lines = s.lines[0], s.lines[1:]
	return true
}

func (s *stringSource) Text() string { return s.line }
func (s *stringSource) Err() error   { return nil }

// ParseString parses a header block held in a string.
func ParseString(block string) (*Dict, error) {
	lines := strings.SplitAfter(block, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return Parse(&stringSource{lines: lines})
}

// Unparse renders a header block, terminated by an empty line, ready to be
// written to the wire as part of a POST.
func Unparse(d *Dict) string {
	if d == nil {
		return "\r\n"
	}
	var b strings.Builder
	d.Each(func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	b.WriteString("\r\n")
	return b.String()
}
