// Package fifo provides the byte buffer that backs NNTP response framing.
//
// NNTP is line-oriented everywhere except inside compressed payloads, so the
// buffer is built around cheap line extraction with read/peek variants for
// the remaining cases.
package fifo

import "bytes"

// Consumed bytes are physically discarded once the read cursor passes this
// threshold, bounding memory under long responses.
const discardSize = 0xFFFF

var eol = []byte("\r\n")

// Fifo is an append-only byte buffer with a read cursor.
//
// Writes are O(1) amortized: written chunks are held on a pending list and
// concatenated into the backing buffer only when a read operation needs to
// search it.
type Fifo struct {
	buf     []byte
	pending [][]byte
	pos     int
}

// New delivers a Fifo, optionally seeded with data.
func New(data []byte) *Fifo {
	f := &Fifo{}
	if len(data) > 0 {
		f.buf = append(f.buf, data...)
	}
	return f
}

// Len reports the number of unread bytes.
func (f *Fifo) Len() int {
	n := len(f.buf) - f.pos
	for _, p := range f.pending {
		n += len(p)
	}
	return n
}

// Write appends data to the buffer. The data is copied, so the caller may
// reuse the slice.
func (f *Fifo) Write(data []byte) {
	if len(data) == 0 {
		return
	}
	f.pending = append(f.pending, append([]byte(nil), data...))
}

// Clear drops all buffered data.
func (f *Fifo) Clear() {
	f.buf = nil
	f.pending = nil
	f.pos = 0
}

func (f *Fifo) flush() {
	if len(f.pending) == 0 {
		return
	}
	for _, p := range f.pending {
		f.buf = append(f.buf, p...)
	}
	f.pending = nil
}

func (f *Fifo) discard() {
	if f.pos > discardSize {
		f.buf = f.buf[f.pos:]
		f.pos = 0
	}
}

// Read returns up to length bytes, advancing the cursor. If length is not
// positive, or exceeds the buffered data, all buffered bytes are returned
// (possibly none).
func (f *Fifo) Read(length int) []byte {
	f.flush()
	if 0 < length && length < f.Len() {
		newpos := f.pos + length
		data := f.buf[f.pos:newpos]
		f.pos = newpos
		f.discard()
		return data
	}
	data := f.buf[f.pos:]
	f.Clear()
	return data
}

// ReadLine returns the next line including its "\r\n" terminator, advancing
// the cursor. It returns nil when no complete line is buffered; partial
// lines are never returned.
func (f *Fifo) ReadLine() []byte {
	f.flush()
	i := bytes.Index(f.buf[f.pos:], eol)
	if i < 0 {
		return nil
	}
	newpos := f.pos + i + len(eol)
	data := f.buf[f.pos:newpos]
	f.pos = newpos
	f.discard()
	return data
}

// ReadUntil returns data through the end of token if the token is buffered,
// advancing the cursor past it. Otherwise it returns (false, prefix) where
// prefix is the available data less max(len(token)-1, keep) trailing bytes,
// retained so a token straddling a write boundary is still found later.
func (f *Fifo) ReadUntil(token []byte, keep int) (bool, []byte) {
	f.flush()
	i := bytes.Index(f.buf[f.pos:], token)
	if i < 0 {
		retain := len(token) - 1
		if keep > retain {
			retain = keep
		}
		newpos := len(f.buf) - retain
		if newpos < f.pos {
			newpos = f.pos
		}
		data := f.buf[f.pos:newpos]
		f.pos = newpos
		f.discard()
		return false, data
	}
	newpos := f.pos + i + len(token)
	data := f.buf[f.pos:newpos]
	f.pos = newpos
	f.discard()
	return true, data
}

// Peek is Read without advancing the cursor.
func (f *Fifo) Peek(length int) []byte {
	f.flush()
	if 0 < length && length < f.Len() {
		return f.buf[f.pos : f.pos+length]
	}
	return f.buf[f.pos:]
}

// PeekLine is ReadLine without advancing the cursor.
func (f *Fifo) PeekLine() []byte {
	f.flush()
	i := bytes.Index(f.buf[f.pos:], eol)
	if i < 0 {
		return nil
	}
	return f.buf[f.pos : f.pos+i+len(eol)]
}

// PeekUntil is ReadUntil without advancing the cursor.
func (f *Fifo) PeekUntil(token []byte, keep int) (bool, []byte) {
	f.flush()
	i := bytes.Index(f.buf[f.pos:], token)
	if i < 0 {
		retain := len(token) - 1
		if keep > retain {
			retain = keep
		}
		newpos := len(f.buf) - retain
		if newpos < f.pos {
			newpos = f.pos
		}
		return false, f.buf[f.pos:newpos]
	}
	return true, f.buf[f.pos : f.pos+i+len(token)]
}
