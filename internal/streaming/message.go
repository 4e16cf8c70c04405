package streaming

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/ericlarwa/gridline/internal/wire"
)

// Message is the persisted, on-disk form of an appended record: everything
// the partition fills in at append time plus whatever the producer sent.
type Message struct {
	Offset    uint64
	ID        wire.MessageID
	Timestamp uint64 // micros since epoch
	Headers   map[string]wire.HeaderValue
	Payload   []byte
	Checksum  uint32 // crc32(payload)
}

// checksum computes the stored checksum for a payload (§3 Message, §7
// ChecksumMismatch).
func checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// encodeMessage serializes one Message for the segment log:
// [offset u64][idHigh u64][idLow u64][timestamp u64][checksum u32]
// [headerCount u32]{[keyLen u8][key][kind u8][valLen u32][val]}...[payloadLen u32][payload]
func encodeMessage(m Message) []byte {
	headerBytes := 0
	for k, v := range m.Headers {
		headerBytes += 1 + len(k) + 1 + 4 + len(v.Bytes)
	}
	total := 8 + 8 + 8 + 8 + 4 + 4 + headerBytes + 4 + len(m.Payload)
	buf := make([]byte, total)
	pos := 0
	binary.LittleEndian.PutUint64(buf[pos:], m.Offset)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], m.ID.High)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], m.ID.Low)
	pos += 8
	binary.LittleEndian.PutUint64(buf[pos:], m.Timestamp)
	pos += 8
	binary.LittleEndian.PutUint32(buf[pos:], m.Checksum)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(m.Headers)))
	pos += 4
	for k, v := range m.Headers {
		buf[pos] = byte(len(k))
		pos++
		copy(buf[pos:], k)
		pos += len(k)
		buf[pos] = v.Kind
		pos++
		binary.LittleEndian.PutUint32(buf[pos:], uint32(len(v.Bytes)))
		pos += 4
		copy(buf[pos:], v.Bytes)
		pos += len(v.Bytes)
	}
	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(m.Payload)))
	pos += 4
	copy(buf[pos:], m.Payload)
	return buf
}

// decodeMessage reads one Message from b, returning how many bytes it
// consumed. A short/corrupt buffer (fewer bytes than the header demands)
// returns io.ErrUnexpectedEOF-class errors via wire.Error.
func decodeMessage(b []byte) (Message, int, error) {
	if len(b) < 40 {
		return Message{}, 0, wire.New(wire.KindIOError, "streaming: message header truncated")
	}
	var m Message
	pos := 0
	m.Offset = binary.LittleEndian.Uint64(b[pos:])
	pos += 8
	m.ID.High = binary.LittleEndian.Uint64(b[pos:])
	pos += 8
	m.ID.Low = binary.LittleEndian.Uint64(b[pos:])
	pos += 8
	m.Timestamp = binary.LittleEndian.Uint64(b[pos:])
	pos += 8
	m.Checksum = binary.LittleEndian.Uint32(b[pos:])
	pos += 4
	hdrCount := int(binary.LittleEndian.Uint32(b[pos:]))
	pos += 4
	if hdrCount > 0 {
		m.Headers = make(map[string]wire.HeaderValue, hdrCount)
	}
	for i := 0; i < hdrCount; i++ {
		if len(b) < pos+1 {
			return Message{}, 0, wire.New(wire.KindIOError, "streaming: header truncated")
		}
		klen := int(b[pos])
		pos++
		if len(b) < pos+klen+1+4 {
			return Message{}, 0, wire.New(wire.KindIOError, "streaming: header truncated")
		}
		key := string(b[pos : pos+klen])
		pos += klen
		kind := b[pos]
		pos++
		vlen := int(binary.LittleEndian.Uint32(b[pos:]))
		pos += 4
		if len(b) < pos+vlen {
			return Message{}, 0, wire.New(wire.KindIOError, "streaming: header value truncated")
		}
		val := append([]byte(nil), b[pos:pos+vlen]...)
		pos += vlen
		m.Headers[key] = wire.HeaderValue{Kind: kind, Bytes: val}
	}
	if len(b) < pos+4 {
		return Message{}, 0, wire.New(wire.KindIOError, "streaming: payload length truncated")
	}
	plen := int(binary.LittleEndian.Uint32(b[pos:]))
	pos += 4
	if len(b) < pos+plen {
		return Message{}, 0, wire.New(wire.KindIOError, "streaming: payload truncated")
	}
	m.Payload = append([]byte(nil), b[pos:pos+plen]...)
	pos += plen
	if checksum(m.Payload) != m.Checksum {
		return Message{}, 0, wire.New(wire.KindChecksumMismatch, "streaming: checksum mismatch at offset %d", m.Offset)
	}
	return m, pos, nil
}
