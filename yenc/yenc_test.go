package yenc

import (
	"bytes"
	"hash/crc32"
	"testing"

	assert "github.com/stretchr/testify/require"
)

func TestTrailerCRC32(t *testing.T) {
	for _, tt := range []struct {
		trailer string
		want    uint32
		ok      bool
	}{
		{"=yend size=100 crc32=00000000", 0, true},
		{"=yend size=100 crc32=ffffffff", 0xFFFFFFFF, true},
		{"=yend size=100 crc32=12345678", 0x12345678, true},
		{"=yend size=100 CRC32=DEADBEEF", 0xDEADBEEF, true},
		{"=yend size=100 crc=cafef00d", 0xCAFEF00D, true},
		{"=yend size=100 pcrc32=12345678", 0, false},
		{"=yend size=100", 0, false},
		{"=yend size=100 crc32=123", 0, false},
	} {
		got, ok := TrailerCRC32([]byte(tt.trailer))
		assert.Equal(t, tt.ok, ok, tt.trailer)
		assert.Equal(t, tt.want, got, tt.trailer)
	}
}

func TestDecode(t *testing.T) {
	d := NewDecoder()
	// "=J" escapes to 0xE0: 'J' (0x4A) - 106 = 0xE0.
	got := d.Decode([]byte{'r', 'o', 'v', '=', 'J', '\r', '\n'})
	assert.Equal(t, []byte{'H', 'E', 'L', 0xE0}, got)
}

func TestDecodeEscapeAcrossCalls(t *testing.T) {
	d := NewDecoder()
	var out []byte
	out = append(out, d.Decode([]byte{'='})...)
	out = append(out, d.Decode([]byte{'J'})...)
	assert.Equal(t, []byte{0xE0}, out)
}

// Encode arbitrary bytes per the yEnc rules, escaping the reserved set.
func encode(plain []byte, lineLen int) []byte {
	var buf bytes.Buffer
	col := 0
	for _, p := range plain {
		e := p + 42
		switch e {
		case 0x00, 0x0A, 0x0D, '=':
			buf.WriteByte('=')
			buf.WriteByte(e + 64)
			col += 2
		default:
			if col == 0 && e == '.' {
				buf.WriteByte('=')
				buf.WriteByte(e + 64)
				col += 2
				break
			}
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

func TestDecodeRoundTrip(t *testing.T) {
	plain := make([]byte, 1024)
	for i := range plain {
		plain[i] = byte(i * 31)
	}

	d := NewDecoder()
	got := d.Decode(encode(plain, 128))
	assert.Equal(t, plain, got)
	assert.Equal(t, crc32.ChecksumIEEE(plain), d.CRC32())
}

func TestDecodeLineAtATime(t *testing.T) {
	plain := []byte("a reasonably boring test payload, repeated. a reasonably boring test payload.")

	d := NewDecoder()
	var got []byte
	for _, line := range bytes.SplitAfter(encode(plain, 32), []byte("\r\n")) {
		got = append(got, d.Decode(line)...)
	}
	assert.Equal(t, plain, got)
	assert.Equal(t, crc32.ChecksumIEEE(plain), d.CRC32())
}

func TestCRCAccumulatesAcrossDecodes(t *testing.T) {
	d := NewDecoder()
	_ = d.Decode(encode([]byte("first"), 128))
	_ = d.Decode(encode([]byte("second"), 128))
	assert.Equal(t, crc32.ChecksumIEEE([]byte("firstsecond")), d.CRC32())
}
