// Package isp holds opaque ISP control payloads keyed by 32-bit tag and
// pushes them to the camera as part of the parameter set.
package isp

import (
	"encoding/binary"
	"fmt"
)

// headerSize is the uuid and size prefix of every record.
const headerSize = 8

// Record is one tag payload of an ISP control file.
type Record struct {
	Tag     uint32
	Payload []byte
}

// Decode splits blob into consecutive {tag, size, payload} records, both
// header fields little-endian. Parsing stops at the first record that does
// not fit; rest is the number of bytes left unparsed.
func Decode(blob []byte) (records []Record, rest int) {
	off := 0
	for len(blob)-off >= headerSize {
		tag := binary.LittleEndian.Uint32(blob[off:])
		size := int(binary.LittleEndian.Uint32(blob[off+4:]))
		if size < 0 || size > len(blob)-off-headerSize {
			break
		}
		start := off + headerSize
		records = append(records, Record{Tag: tag, Payload: append([]byte(nil), blob[start:start+size]...)})
		off = start + size
	}
	return records, len(blob) - off
}

// Encode is the inverse of Decode.
func Encode(records []Record) []byte {
	n := 0
	for _, r := range records {
		n += headerSize + len(r.Payload)
	}
	out := make([]byte, 0, n)
	for _, r := range records {
		out = binary.LittleEndian.AppendUint32(out, r.Tag)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(r.Payload)))
		out = append(out, r.Payload...)
	}
	return out
}

func (r Record) String() string {
	return fmt.Sprintf("tag=0x%08x size=%d", r.Tag, len(r.Payload))
}
