// Package yenc implements a streaming yEnc decoder.
//
// yEnc maps arbitrary bytes onto a mostly-printable stream by subtracting 42
// (mod 256) and escaping a handful of reserved bytes with an '=' prefix
// (which subtracts a further 64). A CRC32 of the decoded data is carried in
// the "=yend" trailer line.
package yenc

import (
	"hash/crc32"
	"regexp"
	"strconv"
)

var crcRe = regexp.MustCompile(`(?i)\s+crc(?:32)?=([0-9a-fA-F]{8})`)

// TrailerCRC32 extracts the expected CRC32 value from a yEnc trailer line.
// The second return value is false when the trailer carries no crc field.
func TrailerCRC32(trailer []byte) (uint32, bool) {
	m := crcRe.FindSubmatch(trailer)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseUint(string(m[1]), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// Decoder decodes a single logical yEnc stream, maintaining the CRC32 of all
// output produced so far. The zero value is ready to use; state is reset
// only by constructing a new Decoder.
type Decoder struct {
	crc    uint32
	escape bool
}

// NewDecoder delivers a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes one buffer of encoded input, returning the decoded bytes.
// Escape state carries across calls, so input may be split at any byte
// boundary. Decode never fails; callers verify the stream by comparing
// CRC32 against the trailer value.
func (d *Decoder) Decode(buf []byte) []byte {
	data := make([]byte, 0, len(buf))
	for _, b := range buf {
		switch {
		case d.escape:
			data = append(data, b-106)
			d.escape = false
		case b == '=':
			d.escape = true
		case b == '\r' || b == '\n':
		default:
			data = append(data, b-42)
		}
	}
	d.crc = crc32.Update(d.crc, crc32.IEEETable, data)
	return data
}

// CRC32 reports the CRC32 (IEEE polynomial) of all decoded output.
func (d *Decoder) CRC32() uint32 {
	return d.crc
}
