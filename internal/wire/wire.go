// Package wire frames cached entries with the generation of the path they
// were loaded from, so a reader can tell a current entry from a stale one.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1

	headerLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("confita: corrupt cache entry")
	magic4     = [...]byte{'C', 'N', 'F', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload:
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | vlen(u32 be) | payload(vlen)
func Encode(gen uint64, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	copy(buf, magic4[:])
	buf[4] = version
	buf[5] = kindEntry
	binary.BigEndian.PutUint64(buf[6:14], gen)
	binary.BigEndian.PutUint32(buf[14:18], uint32(len(payload)))
	copy(buf[headerLen:], payload)
	return buf
}

// Decode returns the generation and payload of a framed entry. The payload
// aliases b. Any header mismatch, short buffer or trailing byte is ErrCorrupt.
func Decode(b []byte) (gen uint64, payload []byte, err error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return 0, nil, ErrCorrupt
	}
	gen = binary.BigEndian.Uint64(b[6:14])
	vlen := uint64(binary.BigEndian.Uint32(b[14:18]))
	if vlen != uint64(len(b)-headerLen) {
		return 0, nil, ErrCorrupt
	}
	return gen, b[headerLen:], nil
}
